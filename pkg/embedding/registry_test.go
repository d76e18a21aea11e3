package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-knowledgebase-be/internal/pkg/apperror"
)

type stubProvider struct {
	name  string
	model string
	dims  int
}

func (s *stubProvider) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = make([]float32, s.dims)
	}
	return vectors, nil
}
func (s *stubProvider) ProviderName() string { return s.name }
func (s *stubProvider) ModelName() string    { return s.model }
func (s *stubProvider) Dimensions() int      { return s.dims }

func TestRegistryFirstRegisteredIsDefault(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubProvider{name: "ollama", model: "nomic-embed-text", dims: 768})
	reg.Register(&stubProvider{name: "jina", model: "jina-embeddings-v3", dims: 1024})

	p, err := reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.ProviderName())
}

func TestRegistrySetDefault(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubProvider{name: "ollama", dims: 768})
	reg.Register(&stubProvider{name: "gemini", dims: 768})

	require.NoError(t, reg.SetDefault("gemini"))

	p, err := reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.ProviderName())

	err = reg.SetDefault("bogus")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubProvider{name: "ollama", dims: 768})

	_, err := reg.Resolve("openai")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestRegistryListSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubProvider{name: "ollama", model: "nomic-embed-text", dims: 768})
	reg.Register(&stubProvider{name: "gemini", model: "text-embedding-004", dims: 768})
	reg.Register(&stubProvider{name: "jina", model: "jina-embeddings-v3", dims: 1024})

	infos := reg.List()
	require.Len(t, infos, 3)
	assert.Equal(t, "gemini", infos[0].Name)
	assert.Equal(t, "jina", infos[1].Name)
	assert.Equal(t, "ollama", infos[2].Name)
	assert.Equal(t, 1024, infos[1].Dimensions)
}

func TestValidateBatch(t *testing.T) {
	assert.True(t, apperror.IsKind(ValidateBatch(nil), apperror.KindValidation))
	assert.True(t, apperror.IsKind(ValidateBatch([]string{"ok", ""}), apperror.KindValidation))
	assert.NoError(t, ValidateBatch([]string{"one", "two"}))
}

func TestNormalizeUnitLength(t *testing.T) {
	vec := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, vec[0], 1e-6)
	assert.InDelta(t, 0.8, vec[1], 1e-6)

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}
