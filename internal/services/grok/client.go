// Package grok presets the shared chat-completions client for xAI's
// OpenAI-compatible API.
package grok

import (
	"strings"

	"subalign/internal/services/openai"
)

const (
	// DefaultBaseURL is the xAI API root.
	DefaultBaseURL = "https://api.x.ai/v1"
	// DefaultModel is the cheapest Grok tier that scores reliably.
	DefaultModel = "grok-3-mini"

	backendName = "grok"
)

// NewClient constructs a chat-completions client pointed at xAI. The supplied
// config's Name is always overridden so logs and errors identify the backend.
func NewClient(cfg openai.Config, opts ...openai.Option) *openai.Client {
	cfg.Name = backendName
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	return openai.NewClient(cfg, opts...)
}
