// Package memory provides in-process implementations of the repository
// contracts. They back unit tests and the "memory" storage profile; the
// gorm implementations are the production path.
package memory

import (
	"context"
	"sort"
	"sync"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
)

type NoteRepository struct {
	mu    sync.RWMutex
	notes map[uuid.UUID]*entity.Note
}

var _ contract.NoteRepository = (*NoteRepository)(nil)

func NewNoteRepository() *NoteRepository {
	return &NoteRepository{
		notes: make(map[uuid.UUID]*entity.Note),
	}
}

// Seed inserts or replaces a note. Test setup helper.
func (r *NoteRepository) Seed(notes ...*entity.Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range notes {
		copied := *n
		r.notes[n.Id] = &copied
	}
}

func (r *NoteRepository) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.notes, id)
}

func (r *NoteRepository) matches(n *entity.Note, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if n.Id != s.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range s.IDs {
				if n.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.ByUserID:
			if n.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

func (r *NoteRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Note, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *NoteRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entity.Note
	for _, n := range r.notes {
		if n.IsDeleted {
			continue
		}
		if r.matches(n, specs) {
			copied := *n
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *NoteRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}
