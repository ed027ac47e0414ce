package factory

import (
	"fmt"
	"time"

	"ai-chat-gateway/pkg/llm"
	"ai-chat-gateway/pkg/llm/litellm"
)

func NewProvider(providerType, baseURL, apiKey string, timeout time.Duration) (llm.Provider, error) {
	switch providerType {
	case "litellm", "openai":
		// Any OpenAI-compatible gateway works here.
		if baseURL == "" {
			baseURL = "http://localhost:4000" // Default
		}
		return litellm.NewProvider(baseURL, apiKey, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
