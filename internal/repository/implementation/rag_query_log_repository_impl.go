package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/mapper"
	"ai-knowledgebase-be/internal/model"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RagQueryLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RagQueryLogMapper
}

func NewRagQueryLogRepository(db *gorm.DB) contract.RagQueryLogRepository {
	return &RagQueryLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewRagQueryLogMapper(),
	}
}

func (r *RagQueryLogRepositoryImpl) Create(ctx context.Context, log *entity.RagQueryLog) error {
	m := r.mapper.ToModel(log)
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *RagQueryLogRepositoryImpl) GetById(ctx context.Context, id uuid.UUID) (*entity.RagQueryLog, error) {
	var m model.RagQueryLog
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *RagQueryLogRepositoryImpl) AttachFeedback(ctx context.Context, id uuid.UUID, userId uuid.UUID, feedback *entity.QueryFeedback) error {
	raw, err := json.Marshal(feedback)
	if err != nil {
		return err
	}

	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.RagQueryLog{}).
		Where("id = ? AND user_id = ?", id, userId).
		Updates(map[string]interface{}{
			"feedback":    raw,
			"feedback_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("query log %s not found", id)
	}
	return nil
}

func (r *RagQueryLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.RagQueryLog, error) {
	var models []*model.RagQueryLog
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *RagQueryLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.RagQueryLog{}).Count(&count).Error
	return count, err
}
