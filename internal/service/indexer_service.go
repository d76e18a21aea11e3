package service

import (
	"context"
	"encoding/json"
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
	pktNats "ai-knowledgebase-be/pkg/nats"
	"ai-knowledgebase-be/pkg/vectorstore"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IIndexerService interface {
	Consume(ctx context.Context) error
}

// indexerService is the background worker driving indexing jobs. It consumes
// job messages, walks the user's notes and advances the job through its
// lifecycle, checkpointing counters after every note so status reads are
// live.
type indexerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	providers      *embedding.Registry
	stores         *vectorstore.Registry
	cancelRegistry CancelRegistry
	eventPublisher *pktNats.Publisher
	indexingConfig config.IndexingConfig
	log            logger.ILogger
}

func NewIndexerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	providers *embedding.Registry,
	stores *vectorstore.Registry,
	cancelRegistry CancelRegistry,
	eventPublisher *pktNats.Publisher,
	indexingConfig config.IndexingConfig,
	log logger.ILogger,
) IIndexerService {
	return &indexerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		providers:      providers,
		stores:         stores,
		cancelRegistry: cancelRegistry,
		eventPublisher: eventPublisher,
		indexingConfig: indexingConfig,
		log:            log,
	}
}

// Consume starts the configured number of worker goroutines over one shared
// subscription. Jobs for different users may then run in parallel; each job
// still processes its notes sequentially.
func (s *indexerService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	workers := s.indexingConfig.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		go func() {
			for msg := range messages {
				s.processMessage(ctx, msg)
			}
		}()
	}

	return nil
}

func (s *indexerService) processMessage(ctx context.Context, msg *message.Message) {
	// Malformed or stale messages are acked, never retried; retrying cannot
	// make them valid.
	var payload dto.PublishIndexingJobMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.log.Error("indexer", "failed to unmarshal job message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	job, err := uow.IndexingJobRepository().GetById(ctx, payload.JobId)
	if err != nil {
		s.log.Error("indexer", "failed to load job", map[string]interface{}{
			"job_id": payload.JobId.String(),
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}
	if job == nil || job.Status != entity.JobStatusPending {
		// Already picked up, cancelled while pending, or deleted.
		msg.Ack()
		return
	}

	s.runJob(ctx, uow, job)
	msg.Ack()
}

func (s *indexerService) runJob(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.IndexingJob) {
	if cancelled, _ := s.cancelRegistry.IsCancelRequested(ctx, job.Id); cancelled {
		s.finishJob(ctx, uow, job, entity.JobStatusCancelled)
		return
	}

	provider, err := s.providers.Resolve(job.EmbeddingProvider)
	if err == nil {
		var storeErr error
		if _, storeErr = s.stores.Resolve(job.VectorStore); storeErr != nil {
			err = storeErr
		}
	}
	if err != nil {
		job.Errors = append(job.Errors, err.Error())
		s.finishJob(ctx, uow, job, entity.JobStatusFailed)
		return
	}
	store, _ := s.stores.Resolve(job.VectorStore)

	now := time.Now()
	started, err := uow.IndexingJobRepository().MarkRunning(ctx, job.Id, now)
	if err != nil {
		s.log.Error("indexer", "failed to mark job running", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		return
	}
	if !started {
		// Cancelled between our read and the transition; the terminal state
		// already on the row must stand.
		return
	}
	job.Status = entity.JobStatusRunning
	job.StartedAt = &now

	notes, err := uow.NoteRepository().FindAll(ctx, specification.ByUserID{UserID: job.UserId})
	if err != nil {
		job.Errors = append(job.Errors, "load notes: "+err.Error())
		s.finishJob(ctx, uow, job, entity.JobStatusFailed)
		return
	}

	job.TotalNotes = len(notes)
	for _, note := range notes {
		// Cancellation checkpoint between notes. Work already persisted
		// stays persisted.
		if cancelled, _ := s.cancelRegistry.IsCancelRequested(ctx, job.Id); cancelled {
			s.finishJob(ctx, uow, job, entity.JobStatusCancelled)
			return
		}

		fatal := s.indexNote(ctx, job, note, provider, store)
		if fatal {
			s.finishJob(ctx, uow, job, entity.JobStatusFailed)
			return
		}
		if err := uow.IndexingJobRepository().Update(ctx, job); err != nil {
			s.log.Warn("indexer", "checkpoint update failed", map[string]interface{}{
				"job_id": job.Id.String(),
				"error":  err.Error(),
			})
		}
	}

	// A run where every attempted note failed produced nothing; report it as
	// a failure rather than a hollow success.
	status := entity.JobStatusCompleted
	if job.ProcessedNotes == 0 && len(job.Errors) > 0 {
		status = entity.JobStatusFailed
	}
	s.finishJob(ctx, uow, job, status)
}

// indexNote processes a single note and updates the job counters. Every
// visited note counts as processed or skipped, so the two sum to TotalNotes
// on a run that reaches the end. The return value reports whether the failure
// poisons the whole run: losing the vector store does, a single note failing
// to embed does not.
func (s *indexerService) indexNote(ctx context.Context, job *entity.IndexingJob, note *entity.Note, provider embedding.Provider, store vectorstore.Store) bool {
	if note.IsDeleted {
		if err := store.DeleteByNote(ctx, note.Id); err != nil {
			job.Errors = append(job.Errors, "delete chunks for "+note.Id.String()+": "+err.Error())
			job.SkippedNotes++
			return apperror.IsKind(err, apperror.KindProviderUnavailable)
		}
		job.DeletedNotes++
		job.SkippedNotes++
		return false
	}

	chunks, err := BuildNoteChunks(ctx, note, provider, s.indexingConfig)
	if err != nil {
		job.Errors = append(job.Errors, "embed "+note.Id.String()+": "+err.Error())
		job.SkippedNotes++
		return false
	}
	if len(chunks) == 0 {
		// content became blank since the last run; drop its stale chunks
		if err := store.DeleteByNote(ctx, note.Id); err != nil {
			job.Errors = append(job.Errors, "delete chunks for "+note.Id.String()+": "+err.Error())
			job.SkippedNotes++
			return apperror.IsKind(err, apperror.KindProviderUnavailable)
		}
		job.SkippedNotes++
		return false
	}

	if err := vectorstore.ReplaceForNote(ctx, store, note.Id, chunks); err != nil {
		job.Errors = append(job.Errors, "store "+note.Id.String()+": "+err.Error())
		job.SkippedNotes++
		return apperror.IsKind(err, apperror.KindProviderUnavailable)
	}

	job.ProcessedNotes++
	job.TotalChunks += len(chunks)
	job.ProcessedChunks += len(chunks)
	return false
}

func (s *indexerService) finishJob(ctx context.Context, uow unitofwork.UnitOfWork, job *entity.IndexingJob, status entity.JobStatus) {
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	if err := uow.IndexingJobRepository().Update(ctx, job); err != nil {
		s.log.Error("indexer", "failed to persist terminal job state", map[string]interface{}{
			"job_id": job.Id.String(),
			"status": string(status),
			"error":  err.Error(),
		})
	}
	if err := s.cancelRegistry.Clear(ctx, job.Id); err != nil {
		s.log.Warn("indexer", "failed to clear cancel flag", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
	}

	eventType := map[entity.JobStatus]string{
		entity.JobStatusCompleted: events.IndexingCompleted,
		entity.JobStatusFailed:    events.IndexingFailed,
		entity.JobStatusCancelled: events.IndexingCancelled,
	}[status]
	if s.eventPublisher != nil && eventType != "" {
		evt := events.NewIndexingEvent(eventType, job.Id, job.UserId, map[string]interface{}{
			"processed_notes": job.ProcessedNotes,
			"total_notes":     job.TotalNotes,
			"failed_notes":    len(job.Errors),
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("indexer", "failed to publish lifecycle event", map[string]interface{}{
				"event": eventType,
				"error": err.Error(),
			})
		}
	}

	s.log.Info("indexer", "job finished", map[string]interface{}{
		"job_id":          job.Id.String(),
		"status":          string(status),
		"processed_notes": job.ProcessedNotes,
		"skipped_notes":   job.SkippedNotes,
		"deleted_notes":   job.DeletedNotes,
		"failed_notes":    len(job.Errors),
		"total_chunks":    job.TotalChunks,
	})
}
