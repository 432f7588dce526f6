package translate

import (
	"context"
	"fmt"
)

// Provider names accepted by NewBackend.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Providers lists the supported provider names.
func Providers() []string {
	return []string{ProviderAnthropic, ProviderGemini}
}

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Provider  string
	Model     string
	APIKey    string
	MaxTokens int
}

// NewBackend builds the backend named by cfg.Provider.
func NewBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	switch cfg.Provider {
	case ProviderAnthropic:
		return NewAnthropic(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	case ProviderGemini:
		g, err := NewGemini(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown translator provider %q (supported: %v)", cfg.Provider, Providers())
	}
}
