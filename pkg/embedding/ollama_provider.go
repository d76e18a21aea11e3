package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-knowledgebase-be/internal/pkg/apperror"
)

// OllamaProvider talks to a local Ollama instance (e.g. nomic-embed-text).
// The /api/embed endpoint accepts a batch of inputs natively.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

func NewOllamaProvider(baseURL, model string, dimensions int) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if dimensions <= 0 {
		dimensions = 768
	}
	return &OllamaProvider{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OllamaProvider) ProviderName() string { return "ollama" }
func (p *OllamaProvider) ModelName() string    { return p.model }
func (p *OllamaProvider) Dimensions() int      { return p.dimensions }

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	jsonBody, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.ProviderUnavailable("ollama embed request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.ProviderUnavailable("ollama embed read failed", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperror.RateLimited("ollama throttled the request", fmt.Errorf("%s", string(bodyBytes)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ProviderUnavailable(
			fmt.Sprintf("ollama embed error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", string(bodyBytes)),
		)
	}

	var embedResp ollamaEmbedResponse
	if err := json.Unmarshal(bodyBytes, &embedResp); err != nil {
		return nil, apperror.ProviderUnavailable("ollama embed decode failed", err)
	}

	if len(embedResp.Embeddings) != len(texts) {
		return nil, apperror.ProviderUnavailable(
			fmt.Sprintf("ollama returned %d embeddings for %d inputs", len(embedResp.Embeddings), len(texts)),
			nil,
		)
	}

	vectors := make([][]float32, len(embedResp.Embeddings))
	for i, vec := range embedResp.Embeddings {
		vectors[i] = Normalize(vec)
	}
	return vectors, nil
}
