package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
)

type RagQueryLogRepository struct {
	mu   sync.RWMutex
	logs map[uuid.UUID]*entity.RagQueryLog
}

var _ contract.RagQueryLogRepository = (*RagQueryLogRepository)(nil)

func NewRagQueryLogRepository() *RagQueryLogRepository {
	return &RagQueryLogRepository{logs: make(map[uuid.UUID]*entity.RagQueryLog)}
}

func (r *RagQueryLogRepository) Create(_ context.Context, log *entity.RagQueryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.Id == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return apperror.Internal("generate query log id", err)
		}
		log.Id = id
	}
	copied := *log
	r.logs[log.Id] = &copied
	return nil
}

func (r *RagQueryLogRepository) GetById(_ context.Context, id uuid.UUID) (*entity.RagQueryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	log, ok := r.logs[id]
	if !ok {
		return nil, nil
	}
	copied := *log
	return &copied, nil
}

func (r *RagQueryLogRepository) AttachFeedback(_ context.Context, id uuid.UUID, userId uuid.UUID, feedback *entity.QueryFeedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log, ok := r.logs[id]
	if !ok || log.UserId != userId {
		return apperror.NotFound("query log not found")
	}
	copied := *feedback
	now := time.Now()
	log.Feedback = &copied
	log.FeedbackAt = &now
	return nil
}

func (r *RagQueryLogRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.RagQueryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entity.RagQueryLog
	for _, log := range r.logs {
		if matchesLog(log, specs) {
			copied := *log
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	for _, spec := range specs {
		if p, ok := spec.(specification.Pagination); ok {
			if p.Offset > 0 && p.Offset < len(result) {
				result = result[p.Offset:]
			} else if p.Offset >= len(result) {
				result = nil
			}
			if p.Limit > 0 && p.Limit < len(result) {
				result = result[:p.Limit]
			}
		}
	}
	return result, nil
}

func (r *RagQueryLogRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func matchesLog(log *entity.RagQueryLog, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if log.Id != s.ID {
				return false
			}
		case specification.ByUserID:
			if log.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}
