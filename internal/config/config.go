package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Alignment tunes the correspondence estimator and sequence aligner.
type Alignment struct {
	// Threshold is the minimum correspondence score for an anchor match.
	Threshold float64 `toml:"threshold"`
	// Window is the initial candidate half-width around the proportional
	// reference position of each source cue.
	Window int `toml:"window"`
	// MaxWindow caps candidate window growth for unmatched cues.
	MaxWindow int `toml:"max_window"`
	// MatchBonus rewards each accepted match so longer aligned runs beat
	// isolated high scores.
	MatchBonus float64 `toml:"match_bonus"`
	// BatchSize caps cue pairs per backend scoring request.
	BatchSize int `toml:"batch_size"`
	// Concurrency caps in-flight backend scoring requests.
	Concurrency int `toml:"concurrency"`
	// CallTimeoutSeconds bounds each backend scoring request.
	CallTimeoutSeconds int `toml:"call_timeout_seconds"`
	// Budget caps backend calls per run; zero means unlimited.
	Budget int `toml:"budget"`
	// RateLimitPerSec paces backend calls; zero means unpaced.
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`
}

// Backend holds one provider's connection settings.
type Backend struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// Backends selects the default provider and carries per-provider settings.
type Backends struct {
	Default string  `toml:"default"`
	Gemini  Backend `toml:"gemini"`
	OpenAI  Backend `toml:"openai"`
	Grok    Backend `toml:"grok"`
}

// Translate tunes the subtitle translator.
type Translate struct {
	// ChunkSize caps cues per translation request.
	ChunkSize int `toml:"chunk_size"`
}

// Cache controls the persistent correspondence score cache.
type Cache struct {
	Enabled   bool   `toml:"enabled"`
	Directory string `toml:"directory"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subalign.
//
// Configuration sections by subsystem:
//   - Alignment: scoring thresholds, candidate windows, batching, budgets
//   - Backends: AI provider selection and credentials
//   - Translate: translation chunking
//   - Cache: persistent score cache location
//   - Logging: log format and level
type Config struct {
	Alignment Alignment `toml:"alignment"`
	Backends  Backends  `toml:"backends"`
	Translate Translate `toml:"translate"`
	Cache     Cache     `toml:"cache"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subalign/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has defaults applied, paths expanded, and credentials resolved
// against environment fallbacks.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/subalign/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subalign.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run may write to.
func (c *Config) EnsureDirectories() error {
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Directory) != "" {
		if err := os.MkdirAll(c.Cache.Directory, 0o755); err != nil {
			return fmt.Errorf("create cache directory %q: %w", c.Cache.Directory, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "subalign")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/subalign"
	}
	return filepath.Join(home, ".cache", "subalign")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LexicalBackend names the offline IDF-cosine scorer. It is a valid
// backends.default but carries no connection settings.
const LexicalBackend = "lexical"

// BackendNames lists the AI providers this build can talk to.
func BackendNames() []string {
	return []string{"gemini", "openai", "grok"}
}

// BackendConfig is one provider's connection settings resolved by name,
// ready to hand to a client constructor.
type BackendConfig struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxAttempts    int
}

// ResolveBackend returns the named provider's settings; the empty string
// selects the configured default. The lexical scorer has no connection
// settings, so asking for it here is an error.
func (c *Config) ResolveBackend(name string) (BackendConfig, error) {
	resolved := strings.ToLower(strings.TrimSpace(name))
	if resolved == "" {
		resolved = c.Backends.Default
	}
	var section Backend
	switch resolved {
	case "gemini":
		section = c.Backends.Gemini
	case "openai":
		section = c.Backends.OpenAI
	case "grok":
		section = c.Backends.Grok
	case LexicalBackend:
		return BackendConfig{}, fmt.Errorf("backend %q needs no connection settings", resolved)
	default:
		return BackendConfig{}, fmt.Errorf("unknown backend %q (have %s)", resolved, strings.Join(BackendNames(), ", "))
	}
	return BackendConfig{
		Name:           resolved,
		APIKey:         strings.TrimSpace(section.APIKey),
		BaseURL:        strings.TrimSpace(section.BaseURL),
		Model:          strings.TrimSpace(section.Model),
		TimeoutSeconds: section.TimeoutSeconds,
		MaxAttempts:    section.MaxAttempts,
	}, nil
}

// BackendEnvVar names the environment variable consulted when the named
// backend carries no API key in the file, or empty for unknown names.
func BackendEnvVar(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gemini":
		return "GEMINI_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "grok":
		return "GROK_API_KEY"
	}
	return ""
}
