package jina

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/pkg/embedding"
)

const jinaModel = "jina-embeddings-v2-base-en"

// JinaProvider calls the hosted Jina embeddings API (OpenAI-compatible shape).
type JinaProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ embedding.Provider = (*JinaProvider)(nil)

func NewJinaProvider(apiKey string) *JinaProvider {
	return &JinaProvider{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/embeddings",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *JinaProvider) ProviderName() string { return "jina" }
func (p *JinaProvider) ModelName() string    { return jinaModel }
func (p *JinaProvider) Dimensions() int      { return 768 }

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *JinaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := embedding.ValidateBatch(texts); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(embedRequest{Model: jinaModel, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperror.ProviderUnavailable("jina embed request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.ProviderUnavailable("jina embed read failed", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperror.RateLimited("jina throttled the request", fmt.Errorf("%s", string(bodyBytes)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.ProviderUnavailable(
			fmt.Sprintf("jina api error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", string(bodyBytes)),
		)
	}

	var jinaResp embedResponse
	if err := json.Unmarshal(bodyBytes, &jinaResp); err != nil {
		return nil, apperror.ProviderUnavailable("jina embed decode failed", err)
	}
	if jinaResp.Error != nil {
		return nil, apperror.ProviderUnavailable("jina api returned error: "+jinaResp.Error.Message, nil)
	}
	if len(jinaResp.Data) != len(texts) {
		return nil, apperror.ProviderUnavailable(
			fmt.Sprintf("jina returned %d embeddings for %d inputs", len(jinaResp.Data), len(texts)),
			nil,
		)
	}

	// Output order must match input order; the API keys each vector by index.
	sort.Slice(jinaResp.Data, func(i, j int) bool { return jinaResp.Data[i].Index < jinaResp.Data[j].Index })

	vectors := make([][]float32, len(jinaResp.Data))
	for i, d := range jinaResp.Data {
		vectors[i] = embedding.Normalize(d.Embedding)
	}
	return vectors, nil
}
