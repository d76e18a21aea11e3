package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/pkg/llm"
)

// HuggingFaceProvider speaks the OpenAI-compatible chat API of the HF router.
type HuggingFaceProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.ChatProvider = (*HuggingFaceProvider)(nil)

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []llm.Message `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewHuggingFaceProvider(apiKey, baseURL, model string) *HuggingFaceProvider {
	if baseURL == "" {
		baseURL = "https://router.huggingface.co/v1"
	}
	return &HuggingFaceProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *HuggingFaceProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := &llm.Options{
		Model:     p.model,
		MaxTokens: 500,
	}
	for _, o := range options {
		o(opts)
	}

	jsonData, err := json.Marshal(chatRequest{
		Model:     opts.Model,
		Messages:  history,
		MaxTokens: opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", apperror.ProviderUnavailable("huggingface chat request failed", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperror.ProviderUnavailable("huggingface chat read failed", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", apperror.RateLimited("huggingface throttled the request", fmt.Errorf("%s", string(bodyBytes)))
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperror.ProviderUnavailable(
			fmt.Sprintf("huggingface api error (status %d)", resp.StatusCode),
			fmt.Errorf("%s", string(bodyBytes)),
		)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", apperror.ProviderUnavailable("huggingface chat decode failed", err)
	}
	if chatResp.Error != nil {
		return "", apperror.ProviderUnavailable("huggingface api returned error: "+chatResp.Error.Message, nil)
	}
	if len(chatResp.Choices) == 0 {
		return "", apperror.ProviderUnavailable("empty choices from huggingface api", nil)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (p *HuggingFaceProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
