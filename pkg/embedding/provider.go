package embedding

import (
	"context"
	"math"

	"ai-knowledgebase-be/internal/pkg/apperror"
)

// Provider is the capability contract for embedding backends.
// EmbedBatch returns one vector per input text, in input order.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ProviderName() string
	ModelName() string
	Dimensions() int
}

// ValidateBatch rejects empty batches and batches containing empty texts
// before any network call is made.
func ValidateBatch(texts []string) error {
	if len(texts) == 0 {
		return apperror.Validation("embedding batch must not be empty")
	}
	for i, t := range texts {
		if t == "" {
			return apperror.Validation("embedding batch item %d is empty", i)
		}
	}
	return nil
}

// Normalize scales a vector to unit length. Cosine distance in the vector
// stores assumes normalized vectors; providers call this before returning.
func Normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
