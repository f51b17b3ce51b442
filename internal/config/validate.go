package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. API keys are deliberately
// not required here: the lexical scorer runs offline, and commands that need
// a provider report the missing credential when they build the client.
func (c *Config) Validate() error {
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if c.Alignment.Threshold <= 0 || c.Alignment.Threshold > 1 {
		return errors.New("alignment.threshold must be between 0 and 1")
	}
	if c.Alignment.MaxWindow < c.Alignment.Window {
		return errors.New("alignment.max_window must be at least alignment.window")
	}
	if err := ensurePositiveMap(map[string]int{
		"alignment.window":               c.Alignment.Window,
		"alignment.batch_size":           c.Alignment.BatchSize,
		"alignment.concurrency":          c.Alignment.Concurrency,
		"alignment.call_timeout_seconds": c.Alignment.CallTimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBackends() error {
	name := c.Backends.Default
	if name == LexicalBackend {
		return nil
	}
	for _, known := range BackendNames() {
		if name == known {
			return nil
		}
	}
	return fmt.Errorf("backends.default must be one of %s, or %q",
		strings.Join(BackendNames(), ", "), LexicalBackend)
}

func (c *Config) validateTranslate() error {
	if c.Translate.ChunkSize <= 0 {
		return errors.New("translate.chunk_size must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Directory) == "" {
		return errors.New("cache.directory must be set when cache.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
