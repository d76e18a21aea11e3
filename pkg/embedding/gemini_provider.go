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

const geminiEmbeddingModel = "text-embedding-004"

// GeminiProvider calls the Generative Language API batch embedding endpoint.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeminiProvider(apiKey string) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1/models",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *GeminiProvider) ProviderName() string { return "gemini" }
func (p *GeminiProvider) ModelName() string    { return geminiEmbeddingModel }
func (p *GeminiProvider) Dimensions() int      { return 768 }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model   string        `json:"model"`
	Content geminiContent `json:"content"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiBatchResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ValidateBatch(texts); err != nil {
		return nil, err
	}

	batch := geminiBatchRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, text := range texts {
		batch.Requests[i] = geminiEmbedRequest{
			Model:   "models/" + geminiEmbeddingModel,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	jsonBody, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s:batchEmbedContents", p.baseURL, geminiEmbeddingModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.ProviderUnavailable("gemini embed request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.ProviderUnavailable("gemini embed read failed", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperror.RateLimited("gemini throttled the request", fmt.Errorf("%s", string(bodyBytes)))
	case resp.StatusCode != http.StatusOK:
		return nil, apperror.ProviderUnavailable(
			fmt.Sprintf("gemini embed error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", string(bodyBytes)),
		)
	}

	var batchResp geminiBatchResponse
	if err := json.Unmarshal(bodyBytes, &batchResp); err != nil {
		return nil, apperror.ProviderUnavailable("gemini embed decode failed", err)
	}

	if len(batchResp.Embeddings) != len(texts) {
		return nil, apperror.ProviderUnavailable(
			fmt.Sprintf("gemini returned %d embeddings for %d inputs", len(batchResp.Embeddings), len(texts)),
			nil,
		)
	}

	vectors := make([][]float32, len(batchResp.Embeddings))
	for i, e := range batchResp.Embeddings {
		vectors[i] = Normalize(e.Values)
	}
	return vectors, nil
}
