package ai

import (
	"fmt"
	"os"

	"github.com/autostack/autostack/pkg/domain/ai"
)

// ProviderOptions selects and configures a backend.
type ProviderOptions struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// NewProvider builds the provider named in opts. An empty API key falls
// back to the provider's conventional environment variable.
func NewProvider(opts ProviderOptions) (ai.Provider, error) {
	switch opts.Provider {
	case "openai", "":
		return NewOpenAIProviderWithClient(opts.Model, keyOrEnv(opts.APIKey, "OPENAI_API_KEY"), opts.BaseURL, nil), nil
	case "anthropic":
		return NewAnthropicProviderWithClient(opts.Model, keyOrEnv(opts.APIKey, "ANTHROPIC_API_KEY"), opts.BaseURL, nil), nil
	case "gemini":
		return NewGeminiProviderWithClient(opts.Model, keyOrEnv(opts.APIKey, "GEMINI_API_KEY"), opts.BaseURL, nil), nil
	case "ollama":
		return NewOllamaProviderWithClient(opts.Model, opts.BaseURL, nil), nil
	case "mock":
		return &MockProvider{Model: opts.Model}, nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", opts.Provider)
	}
}

func keyOrEnv(key, env string) string {
	if key != "" {
		return key
	}
	return os.Getenv(env)
}
