package implementation

import (
	"context"
	"errors"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/mapper"
	"ai-knowledgebase-be/internal/model"
	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/scope"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type NoteEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.NoteEmbeddingMapper
}

func NewNoteEmbeddingRepository(db *gorm.DB) contract.NoteEmbeddingRepository {
	return &NoteEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewNoteEmbeddingMapper(),
	}
}

func (r *NoteEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.NoteEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := r.mapper.ToModels(embeddings)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *NoteEmbeddingRepositoryImpl) ReplaceForNote(ctx context.Context, noteId uuid.UUID, embeddings []*entity.NoteEmbedding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Hard delete inside the replace so the unique (note_id, chunk_index)
		// index cannot collide with soft-deleted rows.
		if err := tx.Unscoped().Where("note_id = ?", noteId).Delete(&model.NoteEmbedding{}).Error; err != nil {
			return err
		}
		if len(embeddings) == 0 {
			return nil
		}
		models := r.mapper.ToModels(embeddings)
		if err := tx.Create(models).Error; err != nil {
			return err
		}
		for i, m := range models {
			*embeddings[i] = *r.mapper.ToEntity(m)
		}
		return nil
	})
}

func (r *NoteEmbeddingRepositoryImpl) DeleteByNoteId(ctx context.Context, noteId uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Where("note_id = ?", noteId).Delete(&model.NoteEmbedding{}).Error
}

func (r *NoteEmbeddingRepositoryImpl) DeleteAllByUserId(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Where("user_id = ?", userId).Delete(&model.NoteEmbedding{}).Error
}

func (r *NoteEmbeddingRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteEmbedding, error) {
	var m model.NoteEmbedding
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *NoteEmbeddingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.NoteEmbedding, error) {
	var models []*model.NoteEmbedding
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *NoteEmbeddingRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.NoteEmbedding{}).Count(&count).Error
	return count, err
}

func (r *NoteEmbeddingRepositoryImpl) CountDistinctNotes(ctx context.Context, userId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.NoteEmbedding{}).
		Where("user_id = ?", userId).
		Distinct("note_id").
		Count(&count).Error
	return count, err
}

func (r *NoteEmbeddingRepositoryImpl) CountByProvider(ctx context.Context, userId uuid.UUID) (map[string]int64, error) {
	type row struct {
		Provider string
		Count    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.NoteEmbedding{}).
		Select("provider, count(*) as count").
		Where("user_id = ?", userId).
		Group("provider").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Provider] = r.Count
	}
	return counts, nil
}

// SearchSimilarWithScore runs cosine nearest-neighbor search. pgvector's
// <=> operator is cosine distance, so similarity = 1 - distance.
// The user_id filter inside the query is the tenant-isolation invariant.
func (r *NoteEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, userId uuid.UUID) ([]*contract.ScoredNoteEmbedding, error) {
	if limit <= 0 {
		limit = 10
	}

	type result struct {
		model.NoteEmbedding
		Score float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("note_embeddings").
		Select("note_embeddings.*, 1 - (embedding_value <=> ?) as score", queryVector).
		Where("user_id = ?", userId).
		Scopes(scope.ExcludeSoftDelete).
		Order("score DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredNoteEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredNoteEmbedding{
			Embedding: r.mapper.ToEntity(&res.NoteEmbedding),
			Score:     res.Score,
		}
	}
	return scored, nil
}

// SearchLexical ranks chunks with Postgres full-text search over the same
// note_embeddings rows the vector search uses, so the two result sets can
// only differ in scoring, never in membership.
func (r *NoteEmbeddingRepositoryImpl) SearchLexical(ctx context.Context, query string, limit int, userId uuid.UUID) ([]*contract.ScoredNoteEmbedding, error) {
	if limit <= 0 {
		limit = 10
	}

	type result struct {
		model.NoteEmbedding
		Score float64
	}
	var results []result

	tsVector := "to_tsvector('english', coalesce(note_title, '') || ' ' || content)"
	err := r.db.WithContext(ctx).
		Table("note_embeddings").
		Select("note_embeddings.*, ts_rank("+tsVector+", plainto_tsquery('english', ?)) as score", query).
		Where("user_id = ?", userId).
		Scopes(scope.ExcludeSoftDelete).
		Where(tsVector+" @@ plainto_tsquery('english', ?)", query).
		Order("score DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredNoteEmbedding, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredNoteEmbedding{
			Embedding: r.mapper.ToEntity(&res.NoteEmbedding),
			Score:     res.Score,
		}
	}
	return scored, nil
}
