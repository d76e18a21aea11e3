package vectorstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/internal/repository/memory"
)

func newChunk(noteId, userId uuid.UUID, index int, content string, vec []float32) *entity.NoteEmbedding {
	return &entity.NoteEmbedding{
		Id:             uuid.New(),
		NoteId:         noteId,
		UserId:         userId,
		ChunkIndex:     index,
		Content:        content,
		EmbeddingValue: vec,
		Provider:       "ollama",
		Model:          "nomic-embed-text",
	}
}

func TestRegistryDefaultAndResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewRepositoryStore("pgvector", memory.NewNoteEmbeddingRepository()))
	reg.Register(NewRepositoryStore("memory", memory.NewNoteEmbeddingRepository()))

	store, err := reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "pgvector", store.Name())

	store, err = reg.Resolve("memory")
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	_, err = reg.Resolve("qdrant")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	require.NoError(t, reg.SetDefault("memory"))
	store, err = reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	assert.Equal(t, []string{"memory", "pgvector"}, reg.List())
}

func TestRepositoryStoreSearchIsTenantScoped(t *testing.T) {
	ctx := context.Background()
	store := NewRepositoryStore("memory", memory.NewNoteEmbeddingRepository())

	alice := uuid.New()
	bob := uuid.New()
	require.NoError(t, store.Upsert(ctx, []*entity.NoteEmbedding{
		newChunk(uuid.New(), alice, 0, "alice note", []float32{1, 0}),
		newChunk(uuid.New(), bob, 0, "bob note", []float32{1, 0}),
	}))

	hits, err := store.Search(ctx, []float32{1, 0}, 10, alice)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, alice, hits[0].Chunk.UserId)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestRepositoryStoreReplaceForNote(t *testing.T) {
	ctx := context.Background()
	store := NewRepositoryStore("memory", memory.NewNoteEmbeddingRepository())

	userId := uuid.New()
	noteId := uuid.New()
	require.NoError(t, store.Upsert(ctx, []*entity.NoteEmbedding{
		newChunk(noteId, userId, 0, "old chunk a", []float32{1, 0}),
		newChunk(noteId, userId, 1, "old chunk b", []float32{0, 1}),
	}))

	require.NoError(t, ReplaceForNote(ctx, store, noteId, []*entity.NoteEmbedding{
		newChunk(noteId, userId, 0, "new chunk", []float32{0.5, 0.5}),
	}))

	hits, err := store.Search(ctx, []float32{0.5, 0.5}, 10, userId)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new chunk", hits[0].Chunk.Content)
}

// fallbackStore hides the Replacer implementation to exercise the
// delete-then-upsert path.
type fallbackStore struct {
	inner   *RepositoryStore
	deletes int
	upserts int
}

func (s *fallbackStore) Name() string { return s.inner.Name() }

func (s *fallbackStore) DeleteByNote(ctx context.Context, noteId uuid.UUID) error {
	s.deletes++
	return s.inner.DeleteByNote(ctx, noteId)
}

func (s *fallbackStore) DeleteByUser(ctx context.Context, userId uuid.UUID) error {
	return s.inner.DeleteByUser(ctx, userId)
}

func (s *fallbackStore) Upsert(ctx context.Context, chunks []*entity.NoteEmbedding) error {
	s.upserts++
	return s.inner.Upsert(ctx, chunks)
}

func (s *fallbackStore) Search(ctx context.Context, embedding []float32, limit int, userId uuid.UUID) ([]*Candidate, error) {
	return s.inner.Search(ctx, embedding, limit, userId)
}

func TestReplaceForNoteFallback(t *testing.T) {
	ctx := context.Background()
	store := &fallbackStore{inner: NewRepositoryStore("memory", memory.NewNoteEmbeddingRepository())}

	userId := uuid.New()
	noteId := uuid.New()
	require.NoError(t, store.Upsert(ctx, []*entity.NoteEmbedding{
		newChunk(noteId, userId, 0, "stale", []float32{1, 0}),
	}))

	var asStore Store = store
	require.NoError(t, ReplaceForNote(ctx, asStore, noteId, []*entity.NoteEmbedding{
		newChunk(noteId, userId, 0, "fresh", []float32{0, 1}),
	}))

	assert.Equal(t, 1, store.deletes)
	assert.Equal(t, 2, store.upserts)

	// empty replacement just clears the note
	require.NoError(t, ReplaceForNote(ctx, asStore, noteId, nil))
	hits, err := store.Search(ctx, []float32{0, 1}, 10, userId)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRepositoryStoreStats(t *testing.T) {
	ctx := context.Background()
	store := NewRepositoryStore("memory", memory.NewNoteEmbeddingRepository())

	userId := uuid.New()
	noteA := uuid.New()
	noteB := uuid.New()
	chunks := []*entity.NoteEmbedding{
		newChunk(noteA, userId, 0, "a0", []float32{1, 0}),
		newChunk(noteA, userId, 1, "a1", []float32{0, 1}),
		newChunk(noteB, userId, 0, "b0", []float32{1, 1}),
	}
	chunks[2].Provider = "jina"
	require.NoError(t, store.Upsert(ctx, chunks))
	require.NoError(t, store.Upsert(ctx, []*entity.NoteEmbedding{
		newChunk(uuid.New(), uuid.New(), 0, "other tenant", []float32{1, 0}),
	}))

	stats, err := store.Stats(ctx, userId)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalChunks)
	assert.Equal(t, int64(2), stats.IndexedNotes)
	assert.Equal(t, int64(2), stats.ChunksByModel["ollama"])
	assert.Equal(t, int64(1), stats.ChunksByModel["jina"])
}

func TestRepositoryStoreDeleteByUser(t *testing.T) {
	ctx := context.Background()
	store := NewRepositoryStore("memory", memory.NewNoteEmbeddingRepository())

	userId := uuid.New()
	other := uuid.New()
	require.NoError(t, store.Upsert(ctx, []*entity.NoteEmbedding{
		newChunk(uuid.New(), userId, 0, "mine", []float32{1, 0}),
		newChunk(uuid.New(), other, 0, "theirs", []float32{1, 0}),
	}))

	require.NoError(t, store.DeleteByUser(ctx, userId))

	stats, err := store.Stats(ctx, userId)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalChunks)

	stats, err = store.Stats(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalChunks)
}
