package llm

import (
	"context"
	"fmt"
	"strings"

	"chatwave-backend/internal/config"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Factory creates the configured provider's client.
type Factory struct {
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIModel:   cfg.OpenAIModel,
	}
}

func (f *Factory) CreateClient(ctx context.Context, provider string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		if f.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		return NewGemini(ctx, f.GeminiAPIKey)
	case ProviderOpenAI:
		if f.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return NewOpenAI(f.OpenAIAPIKey, f.OpenAIBaseURL, f.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
