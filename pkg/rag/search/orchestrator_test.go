package search

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/internal/repository/memory"
	"ai-knowledgebase-be/pkg/fulltext"
	"ai-knowledgebase-be/pkg/rag/expand"
	"ai-knowledgebase-be/pkg/vectorstore"
)

// mapProvider embeds each known query to a fixed vector and fails on
// anything it does not know. Safe for the concurrent variant searches.
type mapProvider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	calls   int
}

func (p *mapProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, ok := p.vectors[t]
		if !ok {
			return nil, errors.New("unknown query: " + t)
		}
		out[i] = vec
	}
	return out, nil
}
func (p *mapProvider) ProviderName() string { return "fake" }
func (p *mapProvider) ModelName() string    { return "fake-model" }
func (p *mapProvider) Dimensions() int      { return 2 }

type failingIndex struct{}

func (failingIndex) Search(_ context.Context, _ string, _ int, _ uuid.UUID) ([]*fulltext.Hit, error) {
	return nil, errors.New("fts unavailable")
}

type fixture struct {
	repo   *memory.NoteEmbeddingRepository
	store  vectorstore.Store
	userId uuid.UUID
}

func seedCorpus(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewNoteEmbeddingRepository()
	userId := uuid.New()

	chunks := []*entity.NoteEmbedding{
		{Id: uuid.New(), NoteId: uuid.New(), UserId: userId, ChunkIndex: 0,
			NoteTitle: "Garden notes", Content: "tomato seedlings need daily watering",
			EmbeddingValue: []float32{1, 0}, Provider: "fake", Model: "fake-model"},
		{Id: uuid.New(), NoteId: uuid.New(), UserId: userId, ChunkIndex: 0,
			NoteTitle: "Cooking", Content: "roast tomato sauce recipe",
			EmbeddingValue: []float32{0.8, 0.6}, Provider: "fake", Model: "fake-model"},
		{Id: uuid.New(), NoteId: uuid.New(), UserId: userId, ChunkIndex: 0,
			NoteTitle: "Meeting", Content: "quarterly planning agenda and action items",
			EmbeddingValue: []float32{0, 1}, Provider: "fake", Model: "fake-model"},
	}
	require.NoError(t, repo.CreateBulk(context.Background(), chunks))
	return &fixture{
		repo:   repo,
		store:  vectorstore.NewRepositoryStore("memory", repo),
		userId: userId,
	}
}

func original(text string) []expand.Variant {
	return []expand.Variant{{Text: text, Kind: "original"}}
}

func TestExecuteWeightedFusion(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{"tomato watering": {1, 0}}}
	orch := NewOrchestrator(fulltext.NewRepositoryIndex(f.repo), logger.NewNopLogger())

	res, err := orch.Execute(context.Background(), provider, f.store, f.userId, original("tomato watering"), DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	top := res.Candidates[0]
	assert.Contains(t, top.Chunk.Content, "tomato seedlings")
	// best vector match plus a lexical hit on both query terms
	assert.InDelta(t, 1.0, top.VectorScore, 1e-6)
	assert.Greater(t, top.LexicalScore, 0.0)

	// fused score follows the weighted formula with max-normalized lexical
	maxLex := 0.0
	for _, c := range res.Candidates {
		if c.LexicalScore > maxLex {
			maxLex = c.LexicalScore
		}
	}
	want := 0.7*top.VectorScore + 0.3*top.LexicalScore/maxLex
	assert.InDelta(t, want, top.FusedScore, 1e-9)

	// ordering is best-first
	for i := 1; i < len(res.Candidates); i++ {
		assert.GreaterOrEqual(t, res.Candidates[i-1].FusedScore, res.Candidates[i].FusedScore)
	}
}

func TestExecuteRRFFusion(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{"tomato": {1, 0}}}
	orch := NewOrchestrator(fulltext.NewRepositoryIndex(f.repo), logger.NewNopLogger())

	cfg := DefaultConfig()
	cfg.Fusion = FusionConfig{Strategy: FusionRRF, RRFK: 60}

	res, err := orch.Execute(context.Background(), provider, f.store, f.userId, original("tomato"), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)

	// RRF scores are sums of 1/(k+rank); a chunk ranked first in both arms
	// gets 2/61, one present only in the vector arm at rank r gets 1/(60+r).
	for _, c := range res.Candidates {
		assert.Greater(t, c.FusedScore, 0.0)
		assert.Less(t, c.FusedScore, 2.0/61.0+1e-9)
	}
	top := res.Candidates[0]
	assert.Contains(t, top.Chunk.Content, "tomato")
}

func TestRRFAppliesArmWeights(t *testing.T) {
	vecOnly := &Candidate{Chunk: &entity.NoteEmbedding{Id: uuid.New()}, VectorScore: 0.9}
	both := &Candidate{Chunk: &entity.NoteEmbedding{Id: uuid.New()}, VectorScore: 0.8, LexicalScore: 2.0}

	fuseRRF([]*Candidate{vecOnly, both}, FusionConfig{
		Strategy:      FusionRRF,
		VectorWeight:  0.7,
		LexicalWeight: 0.3,
		RRFK:          60,
	})

	assert.InDelta(t, 0.7/61.0, vecOnly.FusedScore, 1e-9)
	assert.InDelta(t, 0.7/62.0+0.3/61.0, both.FusedScore, 1e-9)
}

func TestExecuteDedupesAcrossVariants(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{
		"tomato":      {1, 0},
		"hyde answer": {0.8, 0.6},
	}}
	orch := NewOrchestrator(fulltext.NewRepositoryIndex(f.repo), logger.NewNopLogger())

	variants := []expand.Variant{
		{Text: "tomato", Kind: "original"},
		{Text: "hyde answer", Kind: "hyde"},
	}
	res, err := orch.Execute(context.Background(), provider, f.store, f.userId, variants, DefaultConfig())
	require.NoError(t, err)

	seen := make(map[uuid.UUID]int)
	for _, c := range res.Candidates {
		seen[c.Chunk.Id]++
	}
	for id, n := range seen {
		assert.Equalf(t, 1, n, "chunk %s appears %d times", id, n)
	}

	// the sauce chunk matches the hyde variant exactly, so its best vector
	// score across variants is 1.0
	for _, c := range res.Candidates {
		if c.Chunk.Content == "roast tomato sauce recipe" {
			assert.InDelta(t, 1.0, c.VectorScore, 1e-6)
		}
	}
}

func TestExecuteOriginalVariantFailureIsFatal(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{}}
	orch := NewOrchestrator(fulltext.NewRepositoryIndex(f.repo), logger.NewNopLogger())

	_, err := orch.Execute(context.Background(), provider, f.store, f.userId, original("unembeddable"), DefaultConfig())
	require.Error(t, err)
}

func TestExecuteDerivedVariantFailureIsSkipped(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{"tomato": {1, 0}}}
	orch := NewOrchestrator(fulltext.NewRepositoryIndex(f.repo), logger.NewNopLogger())

	variants := []expand.Variant{
		{Text: "tomato", Kind: "original"},
		{Text: "broken variant", Kind: "multi_query"},
	}
	res, err := orch.Execute(context.Background(), provider, f.store, f.userId, variants, DefaultConfig())
	require.NoError(t, err)
	assert.NotEmpty(t, res.Candidates)
}

func TestExecuteLexicalArmFailureTolerated(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{"tomato": {1, 0}}}
	orch := NewOrchestrator(failingIndex{}, logger.NewNopLogger())

	res, err := orch.Execute(context.Background(), provider, f.store, f.userId, original("tomato"), DefaultConfig())
	require.NoError(t, err)
	require.NotEmpty(t, res.Candidates)
	for _, c := range res.Candidates {
		assert.Zero(t, c.LexicalScore)
	}
}

func TestExecuteMinSimilarityFilter(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{"planning": {0, 1}}}
	orch := NewOrchestrator(failingIndex{}, logger.NewNopLogger())

	cfg := DefaultConfig()
	cfg.MinSimilarity = 0.9

	res, err := orch.Execute(context.Background(), provider, f.store, f.userId, original("planning"), cfg)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Contains(t, res.Candidates[0].Chunk.Content, "quarterly planning")
}

func TestExecuteTopKTruncation(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{"tomato": {1, 0}}}
	orch := NewOrchestrator(fulltext.NewRepositoryIndex(f.repo), logger.NewNopLogger())

	cfg := DefaultConfig()
	cfg.TopK = 1

	res, err := orch.Execute(context.Background(), provider, f.store, f.userId, original("tomato"), cfg)
	require.NoError(t, err)
	assert.Len(t, res.Candidates, 1)
}

func TestQueryEmbeddingCached(t *testing.T) {
	f := seedCorpus(t)
	provider := &mapProvider{vectors: map[string][]float32{"tomato": {1, 0}}}
	orch := NewOrchestrator(fulltext.NewRepositoryIndex(f.repo), logger.NewNopLogger())

	for i := 0; i < 3; i++ {
		_, err := orch.Execute(context.Background(), provider, f.store, f.userId, original("tomato"), DefaultConfig())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, provider.calls)
}

func TestFuseDeterministicTieBreak(t *testing.T) {
	idA := uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	idB := uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	merged := map[uuid.UUID]*Candidate{
		idB: {Chunk: &entity.NoteEmbedding{Id: idB}, VectorScore: 0.5},
		idA: {Chunk: &entity.NoteEmbedding{Id: idA}, VectorScore: 0.5},
	}

	for i := 0; i < 5; i++ {
		ordered := fuse(merged, DefaultFusionConfig())
		require.Len(t, ordered, 2)
		assert.Equal(t, idA, ordered[0].Chunk.Id)
		assert.Equal(t, idB, ordered[1].Chunk.Id)
	}
}
