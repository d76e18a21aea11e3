// Package search runs the hybrid retrieval core: vector and lexical search
// in parallel per query variant, fused into one ranked candidate list.
package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/pkg/logger"
	"ai-knowledgebase-be/pkg/embedding"
	"ai-knowledgebase-be/pkg/fulltext"
	"ai-knowledgebase-be/pkg/rag/expand"
	"ai-knowledgebase-be/pkg/vectorstore"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const (
	FusionWeighted = "weighted"
	FusionRRF      = "rrf"

	defaultRRFK           = 60
	defaultTopK           = 10
	defaultCandidateLimit = 20

	embedCacheTTL = 5 * time.Minute
)

// FusionConfig controls how vector and lexical rankings merge.
type FusionConfig struct {
	Strategy      string
	VectorWeight  float64
	LexicalWeight float64
	// RRFK is the rank offset constant for reciprocal rank fusion.
	RRFK int
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		Strategy:      FusionWeighted,
		VectorWeight:  0.7,
		LexicalWeight: 0.3,
		RRFK:          defaultRRFK,
	}
}

type Config struct {
	// TopK is the size of the final fused list.
	TopK int
	// CandidateLimit is how many hits each arm fetches per variant before
	// fusion, normally larger than TopK.
	CandidateLimit int
	// MinSimilarity drops vector hits below this cosine score. Zero keeps all.
	MinSimilarity float64
	Fusion        FusionConfig
}

func DefaultConfig() Config {
	return Config{
		TopK:           defaultTopK,
		CandidateLimit: defaultCandidateLimit,
		Fusion:         DefaultFusionConfig(),
	}
}

// Candidate is one fused hit with its per-arm provenance scores. A zero
// VectorScore or LexicalScore means the chunk was absent from that arm.
type Candidate struct {
	Chunk        *entity.NoteEmbedding
	VectorScore  float64
	LexicalScore float64
	FusedScore   float64
}

// Timings are wall-clock stage durations, recorded for the query log.
type Timings struct {
	QueryEmbeddingMs int64
	VectorSearchMs   int64
	LexicalSearchMs  int64
}

type Result struct {
	Candidates []*Candidate
	Timings    Timings
}

// Orchestrator fans each query variant out to both retrieval arms and fuses
// the results. The embedding cache is shared across requests, keyed by
// provider and model, so switching providers per request stays safe.
type Orchestrator struct {
	index      fulltext.Index
	log        logger.ILogger
	embedCache *gocache.Cache
}

func NewOrchestrator(index fulltext.Index, log logger.ILogger) *Orchestrator {
	return &Orchestrator{
		index:      index,
		log:        log,
		embedCache: gocache.New(embedCacheTTL, 2*embedCacheTTL),
	}
}

type armResult struct {
	vector  []*vectorstore.Candidate
	lexical []*fulltext.Hit
	err     error
}

// Execute retrieves for every variant, fuses across arms and variants, and
// returns the TopK candidates ordered by fused score. A chunk appearing
// under several variants keeps its best per-arm scores.
func (o *Orchestrator) Execute(ctx context.Context, provider embedding.Provider, store vectorstore.Store, userId uuid.UUID, variants []expand.Variant, cfg Config) (*Result, error) {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = defaultCandidateLimit
	}

	// Variants are independent retrievals, so they run concurrently. Each
	// gets its own timing accumulator to keep the goroutines race-free.
	results := make([]armResult, len(variants))
	variantTimings := make([]Timings, len(variants))
	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			results[i] = o.searchVariant(ctx, provider, store, userId, text, cfg, &variantTimings[i])
		}(i, variant.Text)
	}
	wg.Wait()

	var timings Timings
	for _, vt := range variantTimings {
		timings.QueryEmbeddingMs += vt.QueryEmbeddingMs
		timings.VectorSearchMs += vt.VectorSearchMs
		timings.LexicalSearchMs += vt.LexicalSearchMs
	}

	merged := make(map[uuid.UUID]*Candidate)
	var firstErr error

	for i, variant := range variants {
		res := results[i]
		if res.err != nil {
			// The original query failing is fatal, a derived variant failing
			// only loses recall.
			if variant.Kind == "original" {
				return nil, res.err
			}
			if firstErr == nil {
				firstErr = res.err
			}
			o.log.Warn("rag.search", "variant search failed, skipping", map[string]interface{}{
				"kind":  variant.Kind,
				"error": res.err.Error(),
			})
			continue
		}
		mergeArms(merged, res, cfg)
	}

	if len(merged) == 0 && firstErr != nil {
		return nil, firstErr
	}

	candidates := fuse(merged, cfg.Fusion)
	if len(candidates) > cfg.TopK {
		candidates = candidates[:cfg.TopK]
	}
	return &Result{Candidates: candidates, Timings: timings}, nil
}

func (o *Orchestrator) searchVariant(ctx context.Context, provider embedding.Provider, store vectorstore.Store, userId uuid.UUID, query string, cfg Config, timings *Timings) armResult {
	vector, err := o.queryEmbedding(ctx, provider, query, timings)
	if err != nil {
		return armResult{err: err}
	}

	var (
		wg  sync.WaitGroup
		res armResult
		mu  sync.Mutex
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		hits, err := store.Search(ctx, vector, cfg.CandidateLimit, userId)
		mu.Lock()
		defer mu.Unlock()
		timings.VectorSearchMs += time.Since(start).Milliseconds()
		if err != nil {
			res.err = err
			return
		}
		res.vector = hits
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		hits, err := o.index.Search(ctx, query, cfg.CandidateLimit, userId)
		mu.Lock()
		defer mu.Unlock()
		timings.LexicalSearchMs += time.Since(start).Milliseconds()
		if err != nil {
			// Lexical is the supporting arm, vector results alone are still
			// usable.
			o.log.Warn("rag.search", "lexical search failed, vector-only results", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		res.lexical = hits
	}()
	wg.Wait()

	if res.err != nil {
		return armResult{err: res.err}
	}

	if cfg.MinSimilarity > 0 {
		filtered := res.vector[:0]
		for _, hit := range res.vector {
			if hit.Score >= cfg.MinSimilarity {
				filtered = append(filtered, hit)
			}
		}
		res.vector = filtered
	}
	return res
}

func (o *Orchestrator) queryEmbedding(ctx context.Context, provider embedding.Provider, query string, timings *Timings) ([]float32, error) {
	cacheKey := provider.ProviderName() + "/" + provider.ModelName() + "/" + query
	if cached, ok := o.embedCache.Get(cacheKey); ok {
		return cached.([]float32), nil
	}

	start := time.Now()
	vectors, err := provider.EmbedBatch(ctx, []string{query})
	timings.QueryEmbeddingMs += time.Since(start).Milliseconds()
	if err != nil {
		return nil, err
	}
	o.embedCache.Set(cacheKey, vectors[0], gocache.DefaultExpiration)
	return vectors[0], nil
}

// mergeArms folds one variant's arm results into the cross-variant map,
// keeping the best score a chunk achieved in each arm.
func mergeArms(merged map[uuid.UUID]*Candidate, res armResult, cfg Config) {
	for _, hit := range res.vector {
		c, ok := merged[hit.Chunk.Id]
		if !ok {
			c = &Candidate{Chunk: hit.Chunk}
			merged[hit.Chunk.Id] = c
		}
		if hit.Score > c.VectorScore {
			c.VectorScore = hit.Score
		}
	}
	for _, hit := range res.lexical {
		c, ok := merged[hit.Chunk.Id]
		if !ok {
			c = &Candidate{Chunk: hit.Chunk}
			merged[hit.Chunk.Id] = c
		}
		if hit.Score > c.LexicalScore {
			c.LexicalScore = hit.Score
		}
	}
}

// fuse computes fused scores and returns candidates ordered best-first.
// Ties break on chunk id so the ordering is deterministic.
func fuse(merged map[uuid.UUID]*Candidate, cfg FusionConfig) []*Candidate {
	candidates := make([]*Candidate, 0, len(merged))
	for _, c := range merged {
		candidates = append(candidates, c)
	}

	switch cfg.Strategy {
	case FusionRRF:
		fuseRRF(candidates, cfg)
	default:
		fuseWeighted(candidates, cfg)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].FusedScore != candidates[j].FusedScore {
			return candidates[i].FusedScore > candidates[j].FusedScore
		}
		return candidates[i].Chunk.Id.String() < candidates[j].Chunk.Id.String()
	})
	return candidates
}

// fuseWeighted combines cosine similarity with max-normalized lexical score.
// ts_rank and BM25 are unbounded, so lexical scores are scaled into [0, 1]
// against the best lexical hit before weighting.
func fuseWeighted(candidates []*Candidate, cfg FusionConfig) {
	maxLexical := 0.0
	for _, c := range candidates {
		if c.LexicalScore > maxLexical {
			maxLexical = c.LexicalScore
		}
	}
	for _, c := range candidates {
		lexical := 0.0
		if maxLexical > 0 {
			lexical = c.LexicalScore / maxLexical
		}
		c.FusedScore = cfg.VectorWeight*c.VectorScore + cfg.LexicalWeight*lexical
	}
}

// fuseRRF scores by reciprocal rank in each arm's ordering, w/(k+rank) with
// rank starting at 1 and each arm contributing under its configured weight.
func fuseRRF(candidates []*Candidate, cfg FusionConfig) {
	k := cfg.RRFK
	if k <= 0 {
		k = defaultRRFK
	}
	vectorWeight, lexicalWeight := cfg.VectorWeight, cfg.LexicalWeight
	if vectorWeight <= 0 && lexicalWeight <= 0 {
		vectorWeight, lexicalWeight = 1, 1
	}

	byVector := make([]*Candidate, 0, len(candidates))
	byLexical := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.VectorScore > 0 {
			byVector = append(byVector, c)
		}
		if c.LexicalScore > 0 {
			byLexical = append(byLexical, c)
		}
	}
	sort.Slice(byVector, func(i, j int) bool { return byVector[i].VectorScore > byVector[j].VectorScore })
	sort.Slice(byLexical, func(i, j int) bool { return byLexical[i].LexicalScore > byLexical[j].LexicalScore })

	for rank, c := range byVector {
		c.FusedScore += vectorWeight / float64(k+rank+1)
	}
	for rank, c := range byLexical {
		c.FusedScore += lexicalWeight / float64(k+rank+1)
	}
}
