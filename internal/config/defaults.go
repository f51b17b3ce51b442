package config

const (
	defaultThreshold          = 0.65
	defaultWindow             = 8
	defaultMaxWindow          = 32
	defaultMatchBonus         = 0.3
	defaultBatchSize          = 16
	defaultConcurrency        = 4
	defaultCallTimeoutSeconds = 60

	defaultBackend               = "gemini"
	defaultGeminiModel           = "gemini-2.5-flash"
	defaultOpenAIModel           = "gpt-4o-mini"
	defaultGrokModel             = "grok-3-mini"
	defaultGrokBaseURL           = "https://api.x.ai/v1"
	defaultBackendTimeoutSeconds = 15
	defaultBackendMaxAttempts    = 3

	defaultTranslateChunkSize = 2000

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Alignment: Alignment{
			Threshold:          defaultThreshold,
			Window:             defaultWindow,
			MaxWindow:          defaultMaxWindow,
			MatchBonus:         defaultMatchBonus,
			BatchSize:          defaultBatchSize,
			Concurrency:        defaultConcurrency,
			CallTimeoutSeconds: defaultCallTimeoutSeconds,
		},
		Backends: Backends{
			Default: defaultBackend,
			Gemini: Backend{
				Model:          defaultGeminiModel,
				TimeoutSeconds: defaultBackendTimeoutSeconds,
				MaxAttempts:    defaultBackendMaxAttempts,
			},
			OpenAI: Backend{
				Model:          defaultOpenAIModel,
				TimeoutSeconds: defaultBackendTimeoutSeconds,
				MaxAttempts:    defaultBackendMaxAttempts,
			},
			Grok: Backend{
				Model:          defaultGrokModel,
				BaseURL:        defaultGrokBaseURL,
				TimeoutSeconds: defaultBackendTimeoutSeconds,
				MaxAttempts:    defaultBackendMaxAttempts,
			},
		},
		Translate: Translate{
			ChunkSize: defaultTranslateChunkSize,
		},
		Cache: Cache{
			Directory: defaultCacheDir(),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
