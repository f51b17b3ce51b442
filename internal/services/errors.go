package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackend marks transient correspondence-backend failures (rate
	// limits, network errors, malformed responses). Callers absorb these
	// after retries; they never abort a run on their own.
	ErrBackend = errors.New("backend error")
	// ErrBackendUnavailable marks fatal backend conditions such as missing
	// credentials or an unsupported endpoint. Aborts the run immediately.
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	// ErrInconsistent marks alignment output that failed post-validation
	// repair. It indicates an internal defect rather than bad input.
	ErrInconsistent  = errors.New("alignment inconsistent")
	ErrCancelled     = errors.New("cancelled")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrBackend
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps a run error to the process exit code the CLI should use.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrCancelled):
		return 130
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrConfiguration):
		return 2
	default:
		return 1
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
