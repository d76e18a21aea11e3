package memory

import (
	"context"

	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/unitofwork"
)

// Factory hands out units of work over a single shared in-memory dataset.
// Begin/Commit/Rollback are no-ops since there is nothing transactional to
// protect; the repositories lock internally.
type Factory struct {
	notes      *NoteRepository
	embeddings *NoteEmbeddingRepository
	jobs       *IndexingJobRepository
	queryLogs  *RagQueryLogRepository
}

var _ unitofwork.RepositoryFactory = (*Factory)(nil)

func NewFactory() *Factory {
	return &Factory{
		notes:      NewNoteRepository(),
		embeddings: NewNoteEmbeddingRepository(),
		jobs:       NewIndexingJobRepository(),
		queryLogs:  NewRagQueryLogRepository(),
	}
}

func (f *Factory) NewUnitOfWork(_ context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{factory: f}
}

// Notes exposes the backing note repository so callers can seed fixtures.
func (f *Factory) Notes() *NoteRepository { return f.notes }

// Embeddings exposes the backing chunk repository.
func (f *Factory) Embeddings() *NoteEmbeddingRepository { return f.embeddings }

type unitOfWork struct {
	factory *Factory
}

var _ unitofwork.UnitOfWork = (*unitOfWork)(nil)

func (u *unitOfWork) Begin(_ context.Context) error { return nil }
func (u *unitOfWork) Commit() error                 { return nil }
func (u *unitOfWork) Rollback() error               { return nil }

func (u *unitOfWork) NoteRepository() contract.NoteRepository {
	return u.factory.notes
}

func (u *unitOfWork) NoteEmbeddingRepository() contract.NoteEmbeddingRepository {
	return u.factory.embeddings
}

func (u *unitOfWork) IndexingJobRepository() contract.IndexingJobRepository {
	return u.factory.jobs
}

func (u *unitOfWork) RagQueryLogRepository() contract.RagQueryLogRepository {
	return u.factory.queryLogs
}
