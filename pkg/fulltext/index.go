// Package fulltext is the keyword-search counterpart of pkg/vectorstore.
// The lexical side reads the same chunk corpus the vector side writes, so a
// note is either visible to both retrieval arms or to neither.
package fulltext

import (
	"context"
	"strings"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/repository/contract"

	"github.com/google/uuid"
)

// Hit is one keyword match. Score is a relevance value whose scale depends
// on the backend (ts_rank for Postgres, BM25 in memory); only its ordering
// is comparable across hits from the same search.
type Hit struct {
	Chunk *entity.NoteEmbedding
	Score float64
}

// Index answers keyword queries scoped to one user.
type Index interface {
	Search(ctx context.Context, query string, limit int, userId uuid.UUID) ([]*Hit, error)
}

// RepositoryIndex adapts a NoteEmbeddingRepository's lexical search into the
// Index interface.
type RepositoryIndex struct {
	repo contract.NoteEmbeddingRepository
}

var _ Index = (*RepositoryIndex)(nil)

func NewRepositoryIndex(repo contract.NoteEmbeddingRepository) *RepositoryIndex {
	return &RepositoryIndex{repo: repo}
}

func (i *RepositoryIndex) Search(ctx context.Context, query string, limit int, userId uuid.UUID) ([]*Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	scored, err := i.repo.SearchLexical(ctx, query, limit, userId)
	if err != nil {
		return nil, err
	}
	hits := make([]*Hit, 0, len(scored))
	for _, s := range scored {
		hits = append(hits, &Hit{Chunk: s.Embedding, Score: s.Score})
	}
	return hits, nil
}
