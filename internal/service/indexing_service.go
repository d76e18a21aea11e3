package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/repository/specification"
	"ai-knowledgebase-be/internal/repository/unitofwork"
	"ai-knowledgebase-be/pkg/embedding"
	"ai-knowledgebase-be/pkg/events"
	"ai-knowledgebase-be/pkg/lexical"
	pktNats "ai-knowledgebase-be/pkg/nats"
	"ai-knowledgebase-be/pkg/textsplit"
	"ai-knowledgebase-be/pkg/vectorstore"

	"github.com/google/uuid"
)

type IIndexingService interface {
	StartIndexing(ctx context.Context, req *dto.StartIndexingRequest) (*dto.StartIndexingResponse, error)
	CancelIndexing(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.CancelIndexingResponse, error)
	GetIndexingStatus(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.IndexingJobResponse, error)
	GetLatestJob(ctx context.Context, userId uuid.UUID) (*dto.IndexingJobResponse, error)
	GetActiveJob(ctx context.Context, userId uuid.UUID) (*dto.IndexingJobResponse, error)
	ReindexNote(ctx context.Context, req *dto.ReindexNoteRequest) (*dto.ReindexNoteResponse, error)
	DeleteIndexedNotes(ctx context.Context, userId uuid.UUID, vectorStore string) error
	GetIndexStats(ctx context.Context, userId uuid.UUID, vectorStore string) (*dto.IndexStatsResponse, error)
	ListEmbeddingProviders(ctx context.Context) ([]*dto.EmbeddingProviderResponse, error)
}

type indexingService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	providers        *embedding.Registry
	stores           *vectorstore.Registry
	cancelRegistry   CancelRegistry
	eventPublisher   *pktNats.Publisher
	indexingConfig   config.IndexingConfig
	log              logger.ILogger
}

func NewIndexingService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	providers *embedding.Registry,
	stores *vectorstore.Registry,
	cancelRegistry CancelRegistry,
	eventPublisher *pktNats.Publisher,
	indexingConfig config.IndexingConfig,
	log logger.ILogger,
) IIndexingService {
	return &indexingService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		providers:        providers,
		stores:           stores,
		cancelRegistry:   cancelRegistry,
		eventPublisher:   eventPublisher,
		indexingConfig:   indexingConfig,
		log:              log,
	}
}

// StartIndexing claims the user's single active job slot and enqueues the
// run for the worker. The claim is atomic at the repository, so concurrent
// starts race safely and the loser gets a Conflict.
func (s *indexingService) StartIndexing(ctx context.Context, req *dto.StartIndexingRequest) (*dto.StartIndexingResponse, error) {
	provider, err := s.providers.Resolve(req.EmbeddingProvider)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.Resolve(req.VectorStore)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	job := &entity.IndexingJob{
		Id:                uuid.New(),
		UserId:            req.UserId,
		Status:            entity.JobStatusPending,
		EmbeddingProvider: provider.ProviderName(),
		EmbeddingModel:    provider.ModelName(),
		VectorStore:       store.Name(),
		CreatedAt:         time.Now(),
	}
	if err := uow.IndexingJobRepository().CreateClaim(ctx, job); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(dto.PublishIndexingJobMessage{JobId: job.Id, UserId: req.UserId})
	if err != nil {
		return nil, apperror.Internal("marshal indexing job message", err)
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		// The claim is already persisted; release it so the user is not
		// locked out by a job no worker will ever see.
		job.Status = entity.JobStatusFailed
		now := time.Now()
		job.CompletedAt = &now
		job.Errors = append(job.Errors, "enqueue failed: "+err.Error())
		if updateErr := uow.IndexingJobRepository().Update(ctx, job); updateErr != nil {
			s.log.Error("indexing", "failed to mark unenqueued job failed", map[string]interface{}{
				"job_id": job.Id.String(),
				"error":  updateErr.Error(),
			})
		}
		return nil, apperror.Internal("enqueue indexing job", err)
	}

	s.publishEvent(ctx, events.IndexingStarted, job, nil)
	return &dto.StartIndexingResponse{JobId: job.Id, Status: string(job.Status)}, nil
}

// CancelIndexing is idempotent on already-cancelled jobs. A pending job is
// cancelled in place; a running job only gets the flag set and the worker
// performs the transition at its next checkpoint.
func (s *indexingService) CancelIndexing(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.CancelIndexingResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := s.ownedJob(ctx, uow, userId, jobId)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case entity.JobStatusCancelled:
		return &dto.CancelIndexingResponse{JobId: job.Id, Status: string(job.Status)}, nil
	case entity.JobStatusCompleted, entity.JobStatusFailed:
		return nil, apperror.Conflict("job %s already finished as %s", jobId, job.Status)
	}

	if err := s.cancelRegistry.RequestCancel(ctx, jobId); err != nil {
		return nil, apperror.Internal("request cancellation", err)
	}

	if job.Status == entity.JobStatusPending {
		// Nothing consumed the job yet, so the transition happens here. The
		// flag stays set so a late-arriving worker message is a no-op.
		now := time.Now()
		job.Status = entity.JobStatusCancelled
		job.CompletedAt = &now
		if err := uow.IndexingJobRepository().Update(ctx, job); err != nil {
			return nil, err
		}
		s.publishEvent(ctx, events.IndexingCancelled, job, nil)
	}

	return &dto.CancelIndexingResponse{JobId: job.Id, Status: string(job.Status)}, nil
}

func (s *indexingService) GetIndexingStatus(ctx context.Context, userId uuid.UUID, jobId uuid.UUID) (*dto.IndexingJobResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := s.ownedJob(ctx, uow, userId, jobId)
	if err != nil {
		return nil, err
	}
	return jobToResponse(job), nil
}

func (s *indexingService) GetLatestJob(ctx context.Context, userId uuid.UUID) (*dto.IndexingJobResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.IndexingJobRepository().GetLatestByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperror.NotFound("no indexing jobs for user")
	}
	return jobToResponse(job), nil
}

// GetActiveJob reports the user's Pending or Running job, if any. NotFound
// when the slot is free.
func (s *indexingService) GetActiveJob(ctx context.Context, userId uuid.UUID) (*dto.IndexingJobResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.IndexingJobRepository().GetActiveByUser(ctx, userId)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apperror.NotFound("no active indexing job for user")
	}
	return jobToResponse(job), nil
}

// ReindexNote runs the chunk-embed-store pipeline for one note synchronously.
// A soft-deleted note clears its chunks so the index cannot serve content the
// user removed; an unknown note is NotFound.
func (s *indexingService) ReindexNote(ctx context.Context, req *dto.ReindexNoteRequest) (*dto.ReindexNoteResponse, error) {
	provider, err := s.providers.Resolve(req.EmbeddingProvider)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.Resolve(req.VectorStore)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	note, err := uow.NoteRepository().FindOne(ctx,
		specification.ByID{ID: req.NoteId},
		specification.ByUserID{UserID: req.UserId},
	)
	if err != nil {
		return nil, err
	}

	if note == nil {
		return nil, apperror.NotFound("note %s not found", req.NoteId)
	}
	if note.IsDeleted {
		if err := store.DeleteByNote(ctx, req.NoteId); err != nil {
			return nil, err
		}
		return &dto.ReindexNoteResponse{NoteId: req.NoteId, ChunksSaved: 0}, nil
	}

	chunks, err := BuildNoteChunks(ctx, note, provider, s.indexingConfig)
	if err != nil {
		return nil, err
	}
	if err := vectorstore.ReplaceForNote(ctx, store, note.Id, chunks); err != nil {
		return nil, err
	}
	return &dto.ReindexNoteResponse{NoteId: req.NoteId, ChunksSaved: len(chunks)}, nil
}

func (s *indexingService) DeleteIndexedNotes(ctx context.Context, userId uuid.UUID, vectorStore string) error {
	store, err := s.stores.Resolve(vectorStore)
	if err != nil {
		return err
	}
	return store.DeleteByUser(ctx, userId)
}

func (s *indexingService) GetIndexStats(ctx context.Context, userId uuid.UUID, vectorStore string) (*dto.IndexStatsResponse, error) {
	store, err := s.stores.Resolve(vectorStore)
	if err != nil {
		return nil, err
	}
	sp, ok := store.(vectorstore.StatsProvider)
	if !ok {
		return nil, apperror.Validation("vector store %s does not expose stats", store.Name())
	}
	stats, err := sp.Stats(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &dto.IndexStatsResponse{
		TotalChunks:   stats.TotalChunks,
		IndexedNotes:  stats.IndexedNotes,
		ChunksByModel: stats.ChunksByModel,
		VectorStore:   store.Name(),
	}, nil
}

func (s *indexingService) ListEmbeddingProviders(_ context.Context) ([]*dto.EmbeddingProviderResponse, error) {
	defaultProvider, err := s.providers.Resolve("")
	defaultName := ""
	if err == nil {
		defaultName = defaultProvider.ProviderName()
	}

	infos := s.providers.List()
	out := make([]*dto.EmbeddingProviderResponse, len(infos))
	for i, info := range infos {
		out[i] = &dto.EmbeddingProviderResponse{
			Name:       info.Name,
			Model:      info.Model,
			Dimensions: info.Dimensions,
			IsDefault:  info.Name == defaultName,
		}
	}
	return out, nil
}

// ownedJob loads a job and hides other users' jobs behind NotFound.
func (s *indexingService) ownedJob(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, jobId uuid.UUID) (*entity.IndexingJob, error) {
	job, err := uow.IndexingJobRepository().GetById(ctx, jobId)
	if err != nil {
		return nil, err
	}
	if job == nil || job.UserId != userId {
		return nil, apperror.NotFound("indexing job %s not found", jobId)
	}
	return job, nil
}

func (s *indexingService) publishEvent(ctx context.Context, eventType string, job *entity.IndexingJob, details map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.NewIndexingEvent(eventType, job.Id, job.UserId, details)
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("indexing", "failed to publish lifecycle event", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func jobToResponse(job *entity.IndexingJob) *dto.IndexingJobResponse {
	return &dto.IndexingJobResponse{
		Id:                job.Id,
		Status:            string(job.Status),
		TotalNotes:        job.TotalNotes,
		ProcessedNotes:    job.ProcessedNotes,
		SkippedNotes:      job.SkippedNotes,
		DeletedNotes:      job.DeletedNotes,
		FailedNotes:       len(job.Errors),
		TotalChunks:       job.TotalChunks,
		ProcessedChunks:   job.ProcessedChunks,
		Errors:            job.Errors,
		EmbeddingProvider: job.EmbeddingProvider,
		EmbeddingModel:    job.EmbeddingModel,
		VectorStore:       job.VectorStore,
		CreatedAt:         job.CreatedAt,
		StartedAt:         job.StartedAt,
		CompletedAt:       job.CompletedAt,
	}
}

// BuildNoteChunks normalizes a note's content, splits it and embeds every
// chunk with the given provider. Embedding runs in batches of cfg.BatchSize
// so a large note never exceeds the provider's request size. The chunk set
// carries denormalized title and tags so retrieval never has to join back to
// the notes table.
func BuildNoteChunks(ctx context.Context, note *entity.Note, provider embedding.Provider, cfg config.IndexingConfig) ([]*entity.NoteEmbedding, error) {
	plain := lexical.ParseContent(note.Content)
	if strings.TrimSpace(plain) == "" {
		return nil, nil
	}
	parts := textsplit.Split(note.Title+"\n\n"+plain, textsplit.Config{ChunkSize: cfg.ChunkSize, Overlap: cfg.Overlap})
	if len(parts) == 0 {
		return nil, nil
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(parts)
	}
	vectors := make([][]float32, 0, len(parts))
	for start := 0; start < len(parts); start += batchSize {
		end := start + batchSize
		if end > len(parts) {
			end = len(parts)
		}
		batch, err := provider.EmbedBatch(ctx, parts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	now := time.Now()
	chunks := make([]*entity.NoteEmbedding, len(parts))
	for i, part := range parts {
		chunks[i] = &entity.NoteEmbedding{
			Id:             uuid.New(),
			NoteId:         note.Id,
			UserId:         note.UserId,
			ChunkIndex:     i,
			Content:        part,
			NoteTitle:      note.Title,
			NoteTags:       note.Tags,
			EmbeddingValue: vectors[i],
			Provider:       provider.ProviderName(),
			Model:          provider.ModelName(),
			CreatedAt:      now,
		}
	}
	return chunks, nil
}
