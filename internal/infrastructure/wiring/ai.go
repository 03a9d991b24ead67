package wiring

import (
	"github.com/autostack/autostack/internal/infrastructure/config"
	infraai "github.com/autostack/autostack/pkg/ai"
	domainai "github.com/autostack/autostack/pkg/domain/ai"
)

// NewAIProvider builds the configured backend wrapped with retries and a
// per-call timeout.
func NewAIProvider(cfg *config.Config) (domainai.Provider, error) {
	base, err := infraai.NewProvider(infraai.ProviderOptions{
		Provider: cfg.AI.Provider,
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return infraai.NewResilientProviderWithConfig(base, infraai.ResilienceConfig{
		MaxRetries: cfg.AI.MaxRetries,
		RetryDelay: cfg.RetryDelay(),
		Timeout:    cfg.Timeout(),
	}), nil
}
