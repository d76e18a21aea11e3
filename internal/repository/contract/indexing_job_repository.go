package contract

import (
	"context"
	"time"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
)

type IndexingJobRepository interface {
	// CreateClaim atomically inserts the job only when the user has no
	// Pending/Running job. Returns apperror Conflict when a claim exists;
	// a plain check-then-create would race under concurrent starts.
	CreateClaim(ctx context.Context, job *entity.IndexingJob) error

	// MarkRunning transitions the job from Pending to Running in a single
	// conditional write. Reports false when the job is in any other state,
	// so a cancel that landed first is never overwritten.
	MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error)

	Update(ctx context.Context, job *entity.IndexingJob) error
	Delete(ctx context.Context, id uuid.UUID) error

	GetById(ctx context.Context, id uuid.UUID) (*entity.IndexingJob, error)
	GetLatestByUser(ctx context.Context, userId uuid.UUID) (*entity.IndexingJob, error)
	GetActiveByUser(ctx context.Context, userId uuid.UUID) (*entity.IndexingJob, error)

	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IndexingJob, error)
}
