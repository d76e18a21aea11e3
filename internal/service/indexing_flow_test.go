package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/dto"
	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/repository/memory"
	"ai-knowledgebase-be/pkg/embedding"
	"ai-knowledgebase-be/pkg/vectorstore"
)

const testTopic = "indexing.jobs"

// testEmbedder embeds everything to a fixed vector. Texts containing the
// failure marker error out, texts containing nothing succeed; failAll
// simulates a provider-wide outage.
type testEmbedder struct {
	failMarker string
	failAll    bool
}

func (p *testEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if err := embedding.ValidateBatch(texts); err != nil {
		return nil, err
	}
	if p.failAll {
		return nil, apperror.RateLimited("provider quota exhausted", nil)
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		if p.failMarker != "" && strings.Contains(t, p.failMarker) {
			return nil, apperror.ProviderUnavailable("embed request failed", errors.New("upstream 502"))
		}
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}
func (p *testEmbedder) ProviderName() string { return "test" }
func (p *testEmbedder) ModelName() string    { return "test-model" }
func (p *testEmbedder) Dimensions() int      { return 2 }

// batchSizeEmbedder records the size of every EmbedBatch call.
type batchSizeEmbedder struct {
	testEmbedder
	batchSizes []int
}

func (p *batchSizeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.batchSizes = append(p.batchSizes, len(texts))
	return p.testEmbedder.EmbedBatch(ctx, texts)
}

// outageStore reports the vector backend as unavailable on every write.
type outageStore struct {
	*vectorstore.RepositoryStore
}

func (s *outageStore) ReplaceForNote(_ context.Context, _ uuid.UUID, _ []*entity.NoteEmbedding) error {
	return apperror.ProviderUnavailable("vector store unreachable", errors.New("dial tcp"))
}

type failingPublisher struct{}

func (failingPublisher) Publish(_ context.Context, _ []byte) error {
	return errors.New("broker unavailable")
}

type indexingFixture struct {
	factory  *memory.Factory
	pubSub   *gochannel.GoChannel
	cancels  CancelRegistry
	indexing IIndexingService
	indexer  IIndexerService
	userId   uuid.UUID
}

func newIndexingFixture(t *testing.T, provider embedding.Provider, storeFor func(*memory.Factory) vectorstore.Store) *indexingFixture {
	t.Helper()

	factory := memory.NewFactory()
	var store vectorstore.Store
	if storeFor != nil {
		store = storeFor(factory)
	} else {
		store = vectorstore.NewRepositoryStore("memory", factory.Embeddings())
	}

	providers := embedding.NewRegistry()
	providers.Register(provider)
	stores := vectorstore.NewRegistry()
	stores.Register(store)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	cancels := NewMemoryCancelRegistry()
	indexingCfg := config.IndexingConfig{ChunkSize: 200, Overlap: 20, BatchSize: 16, Workers: 1}
	log := logger.NewNopLogger()

	return &indexingFixture{
		factory:  factory,
		pubSub:   pubSub,
		cancels:  cancels,
		indexing: NewIndexingService(factory, NewPublisherService(testTopic, pubSub), providers, stores, cancels, nil, indexingCfg, log),
		indexer:  NewIndexerService(pubSub, testTopic, factory, providers, stores, cancels, nil, indexingCfg, log),
		userId:   uuid.New(),
	}
}

func (f *indexingFixture) seedNotes(contents ...string) {
	for i, content := range contents {
		f.factory.Notes().Seed(&entity.Note{
			Id:        uuid.New(),
			Title:     "Note",
			Content:   content,
			UserId:    f.userId,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Millisecond),
		})
	}
}

func (f *indexingFixture) job(t *testing.T, jobId uuid.UUID) *entity.IndexingJob {
	t.Helper()
	job, err := f.factory.NewUnitOfWork(context.Background()).IndexingJobRepository().GetById(context.Background(), jobId)
	require.NoError(t, err)
	require.NotNil(t, job)
	return job
}

func (f *indexingFixture) waitTerminal(t *testing.T, jobId uuid.UUID) *entity.IndexingJob {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.job(t, jobId).Status.IsTerminal()
	}, 3*time.Second, 10*time.Millisecond)
	return f.job(t, jobId)
}

func TestIndexingJobCompletes(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)
	f.seedNotes("first note body", "second note body", "third note body")
	require.NoError(t, f.indexer.Consume(ctx))

	resp, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)
	assert.Equal(t, string(entity.JobStatusPending), resp.Status)

	job := f.waitTerminal(t, resp.JobId)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 3, job.TotalNotes)
	assert.Equal(t, 3, job.ProcessedNotes)
	assert.Zero(t, job.SkippedNotes)
	assert.Equal(t, 3, job.TotalChunks)
	assert.Empty(t, job.Errors)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, "test", job.EmbeddingProvider)
	assert.Equal(t, "memory", job.VectorStore)

	// the chunks are searchable afterwards
	stats, err := f.indexing.GetIndexStats(ctx, f.userId, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalChunks)
	assert.Equal(t, int64(3), stats.IndexedNotes)
}

func TestEmptyNoteCountsAsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)
	f.seedNotes("alpha has text", "   ", "gamma has text too")
	require.NoError(t, f.indexer.Consume(ctx))

	resp, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	job := f.waitTerminal(t, resp.JobId)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 3, job.TotalNotes)
	assert.Equal(t, 2, job.ProcessedNotes)
	assert.Equal(t, 1, job.SkippedNotes)
	assert.Empty(t, job.Errors)
	assert.Equal(t, job.TotalNotes, job.ProcessedNotes+job.SkippedNotes)
}

func TestStartIndexingConflictWhileActive(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)
	f.seedNotes("a note")
	// consumer not started, so the first job stays pending

	first, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	_, err = f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))

	// a different user is not blocked
	_, err = f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, entity.JobStatusPending, f.job(t, first.JobId).Status)
}

func TestStartIndexingUnknownProvider(t *testing.T) {
	f := newIndexingFixture(t, &testEmbedder{}, nil)
	_, err := f.indexing.StartIndexing(context.Background(), &dto.StartIndexingRequest{
		UserId:            f.userId,
		EmbeddingProvider: "no-such-provider",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestStartIndexingEnqueueFailureFreesSlot(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)

	providers := embedding.NewRegistry()
	providers.Register(&testEmbedder{})
	stores := vectorstore.NewRegistry()
	stores.Register(vectorstore.NewRepositoryStore("memory", f.factory.Embeddings()))
	broken := NewIndexingService(f.factory, failingPublisher{}, providers, stores, f.cancels, nil, config.IndexingConfig{ChunkSize: 200, Overlap: 20}, logger.NewNopLogger())

	_, err := broken.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.Error(t, err)

	// the claim was released, a retry can start
	resp, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, resp.JobId)
}

func TestCancelPendingJob(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)
	f.seedNotes("a note")

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	resp, err := f.indexing.CancelIndexing(ctx, f.userId, started.JobId)
	require.NoError(t, err)
	assert.Equal(t, string(entity.JobStatusCancelled), resp.Status)

	// cancel is idempotent on an already-cancelled job
	resp, err = f.indexing.CancelIndexing(ctx, f.userId, started.JobId)
	require.NoError(t, err)
	assert.Equal(t, string(entity.JobStatusCancelled), resp.Status)

	// the late worker message is a no-op and the slot is free again
	require.NoError(t, f.indexer.Consume(ctx))
	retry, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	job := f.waitTerminal(t, retry.JobId)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, entity.JobStatusCancelled, f.job(t, started.JobId).Status)
}

func TestCancelFinishedJobConflicts(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)
	f.seedNotes("a note")
	require.NoError(t, f.indexer.Consume(ctx))

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)
	f.waitTerminal(t, started.JobId)

	_, err = f.indexing.CancelIndexing(ctx, f.userId, started.JobId)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
}

func TestWorkerHonorsCancelFlag(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)
	f.seedNotes("a note")

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	// flag set before the worker ever sees the message
	require.NoError(t, f.cancels.RequestCancel(ctx, started.JobId))
	require.NoError(t, f.indexer.Consume(ctx))

	job := f.waitTerminal(t, started.JobId)
	assert.Equal(t, entity.JobStatusCancelled, job.Status)
	assert.Zero(t, job.ProcessedNotes)

	// terminal handling cleared the flag
	flagged, err := f.cancels.IsCancelRequested(ctx, started.JobId)
	require.NoError(t, err)
	assert.False(t, flagged)
}

func TestCancelForeignJobHidden(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	_, err = f.indexing.CancelIndexing(ctx, uuid.New(), started.JobId)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = f.indexing.GetIndexingStatus(ctx, uuid.New(), started.JobId)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestSingleNoteFailureDoesNotFailJob(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{failMarker: "POISON"}, nil)
	f.seedNotes("a healthy note", "this one is POISON for the embedder", "another healthy note")
	require.NoError(t, f.indexer.Consume(ctx))

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	job := f.waitTerminal(t, started.JobId)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 3, job.TotalNotes)
	assert.Equal(t, 2, job.ProcessedNotes)
	assert.Equal(t, 1, job.SkippedNotes)
	require.Len(t, job.Errors, 1)
	assert.Contains(t, job.Errors[0], "embed")
}

func TestAllNotesFailingFailsJob(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{failMarker: "note"}, nil)
	f.seedNotes("note one", "note two")
	require.NoError(t, f.indexer.Consume(ctx))

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	job := f.waitTerminal(t, started.JobId)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Zero(t, job.ProcessedNotes)
	assert.Len(t, job.Errors, 2)
}

func TestVectorStoreOutageFailsJobEarly(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, func(factory *memory.Factory) vectorstore.Store {
		return &outageStore{vectorstore.NewRepositoryStore("memory", factory.Embeddings())}
	})
	f.seedNotes("first", "second", "third")
	require.NoError(t, f.indexer.Consume(ctx))

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	job := f.waitTerminal(t, started.JobId)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	// the outage stops the walk at the first note
	require.Len(t, job.Errors, 1)
	assert.Contains(t, job.Errors[0], "store")
}

func TestReindexNoteRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)

	noteId := uuid.New()
	f.factory.Notes().Seed(&entity.Note{
		Id:        noteId,
		Title:     "Standalone",
		Content:   "body of the standalone note",
		UserId:    f.userId,
		CreatedAt: time.Now(),
	})

	resp, err := f.indexing.ReindexNote(ctx, &dto.ReindexNoteRequest{UserId: f.userId, NoteId: noteId})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ChunksSaved)

	stats, err := f.indexing.GetIndexStats(ctx, f.userId, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalChunks)

	f.factory.Notes().Remove(noteId)
	_, err = f.indexing.ReindexNote(ctx, &dto.ReindexNoteRequest{UserId: f.userId, NoteId: noteId})
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	// failed reindex leaves the stored chunks untouched
	stats, err = f.indexing.GetIndexStats(ctx, f.userId, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalChunks)
}

func TestDeleteIndexedNotes(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)
	f.seedNotes("one", "two")
	require.NoError(t, f.indexer.Consume(ctx))

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)
	f.waitTerminal(t, started.JobId)

	require.NoError(t, f.indexing.DeleteIndexedNotes(ctx, f.userId, ""))

	stats, err := f.indexing.GetIndexStats(ctx, f.userId, "")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalChunks)
}

func TestGetLatestJob(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)

	_, err := f.indexing.GetLatestJob(ctx, f.userId)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	latest, err := f.indexing.GetLatestJob(ctx, f.userId)
	require.NoError(t, err)
	assert.Equal(t, started.JobId, latest.Id)
}

func TestBuildNoteChunksBatchesEmbedCalls(t *testing.T) {
	provider := &batchSizeEmbedder{}
	note := &entity.Note{
		Id:      uuid.New(),
		UserId:  uuid.New(),
		Title:   "Long",
		Content: strings.Repeat("alpha beta gamma ", 12),
	}

	chunks, err := BuildNoteChunks(context.Background(), note, provider,
		config.IndexingConfig{ChunkSize: 20, Overlap: 5, BatchSize: 2})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	require.GreaterOrEqual(t, len(provider.batchSizes), 2)
	embedded := 0
	for _, size := range provider.batchSizes {
		assert.LessOrEqual(t, size, 2)
		embedded += size
	}
	assert.Equal(t, len(chunks), embedded)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
	}
}

func TestBuildNoteChunksUnsetBatchSizeSingleCall(t *testing.T) {
	provider := &batchSizeEmbedder{}
	note := &entity.Note{
		Id:      uuid.New(),
		UserId:  uuid.New(),
		Title:   "Long",
		Content: strings.Repeat("alpha beta gamma ", 12),
	}

	chunks, err := BuildNoteChunks(context.Background(), note, provider,
		config.IndexingConfig{ChunkSize: 20, Overlap: 5})
	require.NoError(t, err)
	require.Len(t, provider.batchSizes, 1)
	assert.Equal(t, len(chunks), provider.batchSizes[0])
}

func TestGetActiveJob(t *testing.T) {
	ctx := context.Background()
	f := newIndexingFixture(t, &testEmbedder{}, nil)

	_, err := f.indexing.GetActiveJob(ctx, f.userId)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	started, err := f.indexing.StartIndexing(ctx, &dto.StartIndexingRequest{UserId: f.userId})
	require.NoError(t, err)

	active, err := f.indexing.GetActiveJob(ctx, f.userId)
	require.NoError(t, err)
	assert.Equal(t, started.JobId, active.Id)

	_, err = f.indexing.CancelIndexing(ctx, f.userId, started.JobId)
	require.NoError(t, err)

	_, err = f.indexing.GetActiveJob(ctx, f.userId)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestListEmbeddingProviders(t *testing.T) {
	f := newIndexingFixture(t, &testEmbedder{}, nil)

	providers, err := f.indexing.ListEmbeddingProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "test", providers[0].Name)
	assert.Equal(t, "test-model", providers[0].Model)
	assert.Equal(t, 2, providers[0].Dimensions)
	assert.True(t, providers[0].IsDefault)
}
