package mapper

import (
	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/model"
)

type IndexingJobMapper struct{}

func NewIndexingJobMapper() *IndexingJobMapper {
	return &IndexingJobMapper{}
}

func (m *IndexingJobMapper) ToEntity(j *model.IndexingJob) *entity.IndexingJob {
	if j == nil {
		return nil
	}

	return &entity.IndexingJob{
		Id:                j.Id,
		UserId:            j.UserId,
		Status:            entity.JobStatus(j.Status),
		TotalNotes:        j.TotalNotes,
		ProcessedNotes:    j.ProcessedNotes,
		SkippedNotes:      j.SkippedNotes,
		DeletedNotes:      j.DeletedNotes,
		TotalChunks:       j.TotalChunks,
		ProcessedChunks:   j.ProcessedChunks,
		Errors:            jsonToStrings(j.Errors),
		EmbeddingProvider: j.EmbeddingProvider,
		EmbeddingModel:    j.EmbeddingModel,
		VectorStore:       j.VectorStore,
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
	}
}

func (m *IndexingJobMapper) ToModel(j *entity.IndexingJob) *model.IndexingJob {
	if j == nil {
		return nil
	}

	return &model.IndexingJob{
		Id:                j.Id,
		UserId:            j.UserId,
		Status:            string(j.Status),
		TotalNotes:        j.TotalNotes,
		ProcessedNotes:    j.ProcessedNotes,
		SkippedNotes:      j.SkippedNotes,
		DeletedNotes:      j.DeletedNotes,
		TotalChunks:       j.TotalChunks,
		ProcessedChunks:   j.ProcessedChunks,
		Errors:            stringsToJSON(j.Errors),
		EmbeddingProvider: j.EmbeddingProvider,
		EmbeddingModel:    j.EmbeddingModel,
		VectorStore:       j.VectorStore,
		CreatedAt:         j.CreatedAt,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
	}
}

func (m *IndexingJobMapper) ToEntities(jobs []*model.IndexingJob) []*entity.IndexingJob {
	entities := make([]*entity.IndexingJob, len(jobs))
	for i, j := range jobs {
		entities[i] = m.ToEntity(j)
	}
	return entities
}
