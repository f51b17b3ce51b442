// Package backends constructs AI provider clients from configuration. It is
// the one place that knows which client package serves which backend name,
// so commands and preflight checks stay provider-agnostic.
package backends

import (
	"context"
	"fmt"
	"strings"

	"subalign/internal/config"
	"subalign/internal/services"
	"subalign/internal/services/gemini"
	"subalign/internal/services/grok"
	"subalign/internal/services/openai"
)

// Client is the provider surface the rest of the repo consumes. The
// correspond and translate packages each declare the slice of it they need.
type Client interface {
	Name() string
	Model() string
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, services.Usage, error)
	HealthCheck(ctx context.Context) error
}

// New builds the client for a resolved backend configuration.
func New(cfg config.BackendConfig) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Name)) {
	case "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxAttempts:    cfg.MaxAttempts,
		}), nil
	case "openai":
		return openai.NewClient(openai.Config{
			Name:           "openai",
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxAttempts:    cfg.MaxAttempts,
		}), nil
	case "grok":
		return grok.NewClient(openai.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			TimeoutSeconds: cfg.TimeoutSeconds,
			MaxAttempts:    cfg.MaxAttempts,
		}), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Name)
}
