// Package vectorstore abstracts the chunk vector backend behind a small
// gateway so the indexing worker and the retriever never talk to a concrete
// database directly.
package vectorstore

import (
	"context"

	"ai-knowledgebase-be/internal/entity"

	"github.com/google/uuid"
)

// Candidate is one scored hit returned by Search. Score is cosine
// similarity in [0, 1], higher is closer.
type Candidate struct {
	Chunk *entity.NoteEmbedding
	Score float64
}

// Store is the minimal surface every vector backend must provide.
type Store interface {
	Name() string

	Upsert(ctx context.Context, chunks []*entity.NoteEmbedding) error
	DeleteByNote(ctx context.Context, noteId uuid.UUID) error
	DeleteByUser(ctx context.Context, userId uuid.UUID) error

	Search(ctx context.Context, embedding []float32, limit int, userId uuid.UUID) ([]*Candidate, error)
}

// Replacer is implemented by backends that can swap a note's chunks
// atomically. Callers fall back to DeleteByNote+Upsert when absent.
type Replacer interface {
	ReplaceForNote(ctx context.Context, noteId uuid.UUID, chunks []*entity.NoteEmbedding) error
}

// StatsProvider exposes corpus counters for the index stats endpoint.
type StatsProvider interface {
	Stats(ctx context.Context, userId uuid.UUID) (*Stats, error)
}

type Stats struct {
	TotalChunks   int64            `json:"total_chunks"`
	IndexedNotes  int64            `json:"indexed_notes"`
	ChunksByModel map[string]int64 `json:"chunks_by_model"`
}

// ReplaceForNote uses the store's atomic swap when available, otherwise
// delete-then-upsert.
func ReplaceForNote(ctx context.Context, store Store, noteId uuid.UUID, chunks []*entity.NoteEmbedding) error {
	if r, ok := store.(Replacer); ok {
		return r.ReplaceForNote(ctx, noteId, chunks)
	}
	if err := store.DeleteByNote(ctx, noteId); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}
	return store.Upsert(ctx, chunks)
}
