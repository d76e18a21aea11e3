package contract

import (
	"context"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredNoteEmbedding wraps a chunk with its search score. Similarity is
// cosine (0..1) for vector hits, a ts_rank/BM25 value for lexical hits.
type ScoredNoteEmbedding struct {
	Embedding *entity.NoteEmbedding
	Score     float64
}

type NoteEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.NoteEmbedding) error

	// ReplaceForNote deletes every chunk of the note and writes the new batch
	// in one transaction, so readers never observe a partially indexed note.
	ReplaceForNote(ctx context.Context, noteId uuid.UUID, embeddings []*entity.NoteEmbedding) error

	DeleteByNoteId(ctx context.Context, noteId uuid.UUID) error
	DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error

	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteEmbedding, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NoteEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// CountDistinctNotes reports how many notes currently have chunks.
	CountDistinctNotes(ctx context.Context, userId uuid.UUID) (int64, error)

	// CountByProvider groups the user's chunk counts by embedding provider.
	CountByProvider(ctx context.Context, userId uuid.UUID) (map[string]int64, error)

	// SearchSimilarWithScore runs nearest-neighbor search scoped to one user.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID) ([]*ScoredNoteEmbedding, error)

	// SearchLexical runs keyword search over the same chunk corpus.
	SearchLexical(ctx context.Context, query string, limit int, userId uuid.UUID) ([]*ScoredNoteEmbedding, error)
}
