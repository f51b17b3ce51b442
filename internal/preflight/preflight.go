package preflight

import (
	"context"

	"subalign/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Default scoring backend (always checked)
	results = append(results, CheckDefaultBackend(ctx, cfg))

	// Score cache (when enabled)
	if cfg.Cache.Enabled {
		results = append(results, CheckDirectoryAccess("Cache directory", cfg.Cache.Directory))
		results = append(results, CheckScoreCache(ctx, cfg.Cache.Directory))
	}

	return results
}

// CheckDefaultBackend resolves the configured default backend and verifies
// it is usable. The lexical scorer runs offline, so it always passes.
func CheckDefaultBackend(ctx context.Context, cfg *config.Config) Result {
	if cfg.Backends.Default == config.LexicalBackend {
		return Result{Name: "Backend (lexical)", Passed: true, Detail: "offline scorer, no API needed"}
	}
	resolved, err := cfg.ResolveBackend("")
	if err != nil {
		return Result{Name: "Backend", Detail: err.Error()}
	}
	return CheckBackend(ctx, resolved)
}
