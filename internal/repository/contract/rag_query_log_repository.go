package contract

import (
	"context"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
)

type RagQueryLogRepository interface {
	Create(ctx context.Context, log *entity.RagQueryLog) error

	GetById(ctx context.Context, id uuid.UUID) (*entity.RagQueryLog, error)

	// AttachFeedback sets the feedback fields once; returns apperror NotFound
	// for unknown log ids.
	AttachFeedback(ctx context.Context, id uuid.UUID, userId uuid.UUID, feedback *entity.QueryFeedback) error

	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RagQueryLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
