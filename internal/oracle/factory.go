package oracle

import (
	"context"
	"fmt"
	"os"
)

// New builds a provider client by name. The empty provider, "null" and
// "script" yield an inert client that always answers continue, which
// keeps the runtime deterministic when no model is configured.
func New(ctx context.Context, provider, model, apiKey string) (Client, error) {
	switch provider {
	case "", "null", "script":
		return NewScript(), nil
	case "gemini":
		return NewGeminiClient(ctx, apiKey, model)
	case "openai":
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("oracle: openai provider needs an API key")
		}
		return NewOpenAIClient(apiKey, model), nil
	case "ollama":
		return NewOllamaClient(model), nil
	default:
		return nil, fmt.Errorf("oracle: unknown provider %q", provider)
	}
}
