package unitofwork

import (
	"context"

	"ai-knowledgebase-be/internal/repository/contract"
)

// UnitOfWork groups the pipeline repositories over one connection, with an
// optional explicit transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	NoteRepository() contract.NoteRepository
	NoteEmbeddingRepository() contract.NoteEmbeddingRepository
	IndexingJobRepository() contract.IndexingJobRepository
	RagQueryLogRepository() contract.RagQueryLogRepository
}
