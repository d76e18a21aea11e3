package vectorstore

import (
	"context"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
)

// RepositoryStore adapts a NoteEmbeddingRepository into the Store interface.
// Both the pgvector-backed and the in-memory repository plug in through the
// same adapter, registered under different names.
type RepositoryStore struct {
	name string
	repo contract.NoteEmbeddingRepository
}

var (
	_ Store         = (*RepositoryStore)(nil)
	_ Replacer      = (*RepositoryStore)(nil)
	_ StatsProvider = (*RepositoryStore)(nil)
)

func NewRepositoryStore(name string, repo contract.NoteEmbeddingRepository) *RepositoryStore {
	return &RepositoryStore{name: name, repo: repo}
}

func (s *RepositoryStore) Name() string { return s.name }

func (s *RepositoryStore) Upsert(ctx context.Context, chunks []*entity.NoteEmbedding) error {
	return s.repo.CreateBulk(ctx, chunks)
}

func (s *RepositoryStore) ReplaceForNote(ctx context.Context, noteId uuid.UUID, chunks []*entity.NoteEmbedding) error {
	return s.repo.ReplaceForNote(ctx, noteId, chunks)
}

func (s *RepositoryStore) DeleteByNote(ctx context.Context, noteId uuid.UUID) error {
	return s.repo.DeleteByNoteId(ctx, noteId)
}

func (s *RepositoryStore) DeleteByUser(ctx context.Context, userId uuid.UUID) error {
	return s.repo.DeleteAllByUserId(ctx, userId)
}

func (s *RepositoryStore) Search(ctx context.Context, embedding []float32, limit int, userId uuid.UUID) ([]*Candidate, error) {
	scored, err := s.repo.SearchSimilarWithScore(ctx, embedding, limit, userId)
	if err != nil {
		return nil, err
	}
	candidates := make([]*Candidate, 0, len(scored))
	for _, hit := range scored {
		candidates = append(candidates, &Candidate{Chunk: hit.Embedding, Score: hit.Score})
	}
	return candidates, nil
}

func (s *RepositoryStore) Stats(ctx context.Context, userId uuid.UUID) (*Stats, error) {
	total, err := s.repo.Count(ctx, specification.ByUserID{UserID: userId})
	if err != nil {
		return nil, err
	}
	notes, err := s.repo.CountDistinctNotes(ctx, userId)
	if err != nil {
		return nil, err
	}
	byProvider, err := s.repo.CountByProvider(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalChunks:   total,
		IndexedNotes:  notes,
		ChunksByModel: byProvider,
	}, nil
}
