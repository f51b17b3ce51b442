package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"subalign/internal/backends"
	"subalign/internal/config"
	"subalign/internal/scorecache"
)

// CheckBackend verifies that the backend API is reachable and the key is
// valid. It uses a 30-second timeout and a single attempt (no retries).
func CheckBackend(ctx context.Context, cfg config.BackendConfig) Result {
	name := fmt.Sprintf("Backend (%s)", cfg.Name)
	if cfg.APIKey == "" {
		detail := "API key missing"
		if envVar := config.BackendEnvVar(cfg.Name); envVar != "" {
			detail = fmt.Sprintf("API key missing (set %s or backends.%s.api_key)", envVar, cfg.Name)
		}
		return Result{Name: name, Detail: detail}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cfg.MaxAttempts = 1
	client, err := backends.New(cfg)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeBackendError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", client.Model())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckScoreCache opens the score database under dir and verifies it is
// intact. Opening creates the database when it does not exist yet.
func CheckScoreCache(ctx context.Context, dir string) Result {
	const name = "Score cache"

	store, err := scorecache.Open(dir)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer store.Close()

	health, err := store.CheckHealth(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if !health.IntegrityCheck {
		detail := "integrity check failed"
		if health.Error != "" {
			detail = fmt.Sprintf("integrity check failed: %s", health.Error)
		}
		return Result{Name: name, Detail: detail}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d entries", health.Entries)}
}

// summarizeBackendError produces a human-readable summary for backend
// health check failures.
func summarizeBackendError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (backend API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (backend API unreachable)"
	}
	return err.Error()
}
