package implementation

import (
	"context"
	"errors"
	"time"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/mapper"
	"ai-knowledgebase-be/internal/model"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/scope"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IndexingJobRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.IndexingJobMapper
}

func NewIndexingJobRepository(db *gorm.DB) contract.IndexingJobRepository {
	return &IndexingJobRepositoryImpl{
		db:     db,
		mapper: mapper.NewIndexingJobMapper(),
	}
}

// CreateClaim inserts the Pending row only if the user holds no active job.
// The single INSERT .. WHERE NOT EXISTS statement makes the claim atomic
// under concurrent starts; the partial unique index on (user_id) WHERE
// status IN ('pending','running') backstops it.
func (r *IndexingJobRepositoryImpl) CreateClaim(ctx context.Context, job *entity.IndexingJob) error {
	m := r.mapper.ToModel(job)

	res := r.db.WithContext(ctx).Exec(`
		INSERT INTO indexing_jobs
			(id, user_id, status, total_notes, processed_notes, skipped_notes,
			 deleted_notes, total_chunks, processed_chunks, errors,
			 embedding_provider, embedding_model, vector_store, created_at)
		SELECT ?, ?, ?, 0, 0, 0, 0, 0, 0, '[]'::jsonb, ?, ?, ?, now()
		WHERE NOT EXISTS (
			SELECT 1 FROM indexing_jobs
			WHERE user_id = ? AND status IN ('pending', 'running')
		)`,
		m.Id, m.UserId, m.Status,
		m.EmbeddingProvider, m.EmbeddingModel, m.VectorStore,
		m.UserId,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.Conflict("an indexing job is already active for user %s", job.UserId)
	}

	return nil
}

func (r *IndexingJobRepositoryImpl) MarkRunning(ctx context.Context, id uuid.UUID, startedAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.IndexingJob{}).
		Where("id = ? AND status = ?", id, entity.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     entity.JobStatusRunning,
			"started_at": startedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *IndexingJobRepositoryImpl) Update(ctx context.Context, job *entity.IndexingJob) error {
	m := r.mapper.ToModel(job)
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *IndexingJobRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.IndexingJob{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("indexing job %s not found", id)
	}
	return nil
}

func (r *IndexingJobRepositoryImpl) GetById(ctx context.Context, id uuid.UUID) (*entity.IndexingJob, error) {
	var m model.IndexingJob
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *IndexingJobRepositoryImpl) GetLatestByUser(ctx context.Context, userId uuid.UUID) (*entity.IndexingJob, error) {
	var m model.IndexingJob
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Scopes(scope.OrderByCreatedDesc).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *IndexingJobRepositoryImpl) GetActiveByUser(ctx context.Context, userId uuid.UUID) (*entity.IndexingJob, error) {
	var m model.IndexingJob
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userId, []string{
			string(entity.JobStatusPending),
			string(entity.JobStatusRunning),
		}).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *IndexingJobRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.IndexingJob, error) {
	var models []*model.IndexingJob
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
