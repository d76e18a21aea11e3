package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"ai-knowledgebase-be/internal/entity"
	"ai-knowledgebase-be/internal/repository/contract"
	"ai-knowledgebase-be/internal/repository/specification"

	"github.com/google/uuid"
)

// BM25 constants, the usual defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

type NoteEmbeddingRepository struct {
	mu     sync.RWMutex
	chunks map[uuid.UUID]*entity.NoteEmbedding
}

var _ contract.NoteEmbeddingRepository = (*NoteEmbeddingRepository)(nil)

func NewNoteEmbeddingRepository() *NoteEmbeddingRepository {
	return &NoteEmbeddingRepository{
		chunks: make(map[uuid.UUID]*entity.NoteEmbedding),
	}
}

func (r *NoteEmbeddingRepository) CreateBulk(_ context.Context, embeddings []*entity.NoteEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range embeddings {
		if e.Id == uuid.Nil {
			e.Id = uuid.New()
		}
		copied := *e
		r.chunks[e.Id] = &copied
	}
	return nil
}

func (r *NoteEmbeddingRepository) ReplaceForNote(ctx context.Context, noteId uuid.UUID, embeddings []*entity.NoteEmbedding) error {
	r.mu.Lock()
	for id, c := range r.chunks {
		if c.NoteId == noteId {
			delete(r.chunks, id)
		}
	}
	r.mu.Unlock()
	return r.CreateBulk(ctx, embeddings)
}

func (r *NoteEmbeddingRepository) DeleteByNoteId(_ context.Context, noteId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.chunks {
		if c.NoteId == noteId {
			delete(r.chunks, id)
		}
	}
	return nil
}

func (r *NoteEmbeddingRepository) DeleteAllByUserId(_ context.Context, userId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.chunks {
		if c.UserId == userId {
			delete(r.chunks, id)
		}
	}
	return nil
}

func (r *NoteEmbeddingRepository) matches(c *entity.NoteEmbedding, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if c.Id != s.ID {
				return false
			}
		case specification.ByUserID:
			if c.UserId != s.UserID {
				return false
			}
		case specification.ByNoteID:
			if c.NoteId != s.NoteID {
				return false
			}
		case specification.ByProvider:
			if c.Provider != s.Provider {
				return false
			}
		}
	}
	return true
}

func (r *NoteEmbeddingRepository) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.NoteEmbedding, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *NoteEmbeddingRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.NoteEmbedding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*entity.NoteEmbedding
	for _, c := range r.chunks {
		if r.matches(c, specs) {
			copied := *c
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].NoteId != result[j].NoteId {
			return result[i].NoteId.String() < result[j].NoteId.String()
		}
		return result[i].ChunkIndex < result[j].ChunkIndex
	})
	return result, nil
}

func (r *NoteEmbeddingRepository) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *NoteEmbeddingRepository) CountDistinctNotes(_ context.Context, userId uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	for _, c := range r.chunks {
		if c.UserId == userId {
			seen[c.NoteId] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (r *NoteEmbeddingRepository) CountByProvider(_ context.Context, userId uuid.UUID) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int64)
	for _, c := range r.chunks {
		if c.UserId == userId {
			counts[c.Provider]++
		}
	}
	return counts, nil
}

func (r *NoteEmbeddingRepository) SearchSimilarWithScore(_ context.Context, embedding []float32, limit int, userId uuid.UUID) ([]*contract.ScoredNoteEmbedding, error) {
	if limit <= 0 {
		limit = 10
	}

	r.mu.RLock()
	var scored []*contract.ScoredNoteEmbedding
	for _, c := range r.chunks {
		if c.UserId != userId {
			continue
		}
		copied := *c
		scored = append(scored, &contract.ScoredNoteEmbedding{
			Embedding: &copied,
			Score:     cosineSimilarity(embedding, c.EmbeddingValue),
		})
	}
	r.mu.RUnlock()

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// SearchLexical scores chunks with BM25 over whitespace-tokenized content
// plus the denormalized title.
func (r *NoteEmbeddingRepository) SearchLexical(_ context.Context, query string, limit int, userId uuid.UUID) ([]*contract.ScoredNoteEmbedding, error) {
	if limit <= 0 {
		limit = 10
	}

	queryTerms := tokenize(query)
	if len(queryTerms) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	type doc struct {
		chunk *entity.NoteEmbedding
		terms map[string]int
		len   int
	}

	var docs []doc
	docFreq := make(map[string]int)
	totalLen := 0
	for _, c := range r.chunks {
		if c.UserId != userId {
			continue
		}
		terms := termFrequencies(tokenize(c.NoteTitle + " " + c.Content))
		length := 0
		for _, n := range terms {
			length += n
		}
		docs = append(docs, doc{chunk: c, terms: terms, len: length})
		totalLen += length
		for term := range terms {
			docFreq[term]++
		}
	}
	r.mu.RUnlock()

	if len(docs) == 0 {
		return nil, nil
	}
	avgLen := float64(totalLen) / float64(len(docs))

	var scored []*contract.ScoredNoteEmbedding
	for _, d := range docs {
		score := 0.0
		for _, term := range queryTerms {
			tf := float64(d.terms[term])
			if tf == 0 {
				continue
			}
			df := float64(docFreq[term])
			idf := math.Log(1 + (float64(len(docs))-df+0.5)/(df+0.5))
			score += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*float64(d.len)/avgLen))
		}
		if score <= 0 {
			continue
		}
		copied := *d.chunk
		scored = append(scored, &contract.ScoredNoteEmbedding{Embedding: &copied, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	var terms []string
	for _, f := range fields {
		if len(f) > 1 {
			terms = append(terms, f)
		}
	}
	return terms
}

func termFrequencies(terms []string) map[string]int {
	freq := make(map[string]int, len(terms))
	for _, t := range terms {
		freq[t]++
	}
	return freq
}
