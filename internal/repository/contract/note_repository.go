package contract

import (
	"context"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/repository/specification"
)

// NoteRepository is the read-only contract the pipeline needs from the note
// CRUD subsystem. FindOne returns (nil, nil) when no row matches.
type NoteRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Note, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Note, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
