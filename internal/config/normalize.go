package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAlignment()
	c.normalizeBackends()
	c.normalizeTranslate()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeAlignment() {
	if c.Alignment.Threshold <= 0 {
		c.Alignment.Threshold = defaultThreshold
	}
	if c.Alignment.Window <= 0 {
		c.Alignment.Window = defaultWindow
	}
	if c.Alignment.MaxWindow <= 0 {
		c.Alignment.MaxWindow = defaultMaxWindow
	}
	if c.Alignment.MaxWindow < c.Alignment.Window {
		c.Alignment.MaxWindow = c.Alignment.Window
	}
	if c.Alignment.MatchBonus < 0 {
		c.Alignment.MatchBonus = defaultMatchBonus
	}
	if c.Alignment.BatchSize <= 0 {
		c.Alignment.BatchSize = defaultBatchSize
	}
	if c.Alignment.Concurrency <= 0 {
		c.Alignment.Concurrency = defaultConcurrency
	}
	if c.Alignment.CallTimeoutSeconds <= 0 {
		c.Alignment.CallTimeoutSeconds = defaultCallTimeoutSeconds
	}
	if c.Alignment.Budget < 0 {
		c.Alignment.Budget = 0
	}
	if c.Alignment.RateLimitPerSec < 0 {
		c.Alignment.RateLimitPerSec = 0
	}
}

func (c *Config) normalizeBackends() {
	c.Backends.Default = strings.ToLower(strings.TrimSpace(c.Backends.Default))
	if c.Backends.Default == "" {
		c.Backends.Default = defaultBackend
	}
	normalizeBackend(&c.Backends.Gemini, defaultGeminiModel, "", "GEMINI_API_KEY")
	normalizeBackend(&c.Backends.OpenAI, defaultOpenAIModel, "", "OPENAI_API_KEY")
	normalizeBackend(&c.Backends.Grok, defaultGrokModel, defaultGrokBaseURL, "GROK_API_KEY", "XAI_API_KEY")
}

// normalizeBackend trims a backend section, fills model/endpoint defaults,
// and falls back to the named environment variables when the file carries no
// API key. An explicit key in the file wins over the environment.
func normalizeBackend(b *Backend, defaultModel, defaultURL string, envVars ...string) {
	b.APIKey = strings.TrimSpace(b.APIKey)
	if b.APIKey == "" {
		for _, envVar := range envVars {
			if value, ok := os.LookupEnv(envVar); ok && strings.TrimSpace(value) != "" {
				b.APIKey = strings.TrimSpace(value)
				break
			}
		}
	}
	b.Model = strings.TrimSpace(b.Model)
	if b.Model == "" {
		b.Model = defaultModel
	}
	b.BaseURL = strings.TrimSpace(b.BaseURL)
	if b.BaseURL == "" {
		b.BaseURL = defaultURL
	}
	if b.TimeoutSeconds <= 0 {
		b.TimeoutSeconds = defaultBackendTimeoutSeconds
	}
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = defaultBackendMaxAttempts
	}
}

func (c *Config) normalizeTranslate() {
	if c.Translate.ChunkSize <= 0 {
		c.Translate.ChunkSize = defaultTranslateChunkSize
	}
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Directory) == "" {
		c.Cache.Directory = defaultCacheDir()
	}
	if c.Cache.Directory, err = expandPath(c.Cache.Directory); err != nil {
		return fmt.Errorf("cache.directory: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console", "pretty":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
