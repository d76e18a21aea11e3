package factory

import (
	"ai-knowledgebase-be/internal/pkg/apperror"
	"ai-knowledgebase-be/pkg/llm"
	"ai-knowledgebase-be/pkg/llm/huggingface"
	"ai-knowledgebase-be/pkg/llm/ollama"
)

// NewChatProvider resolves the configured chat backend by name.
func NewChatProvider(providerType, modelName, baseURL, hfAPIKey string) (llm.ChatProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(hfAPIKey, "", modelName), nil
	default:
		return nil, apperror.Validation("unsupported chat provider: %s", providerType)
	}
}
