package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

func TestStatusCommandLexicalOffline(t *testing.T) {
	configPath := writeTestConfig(t, `[logging]
level = "error"

[backends]
default = "lexical"

[cache]
enabled = false
`)

	stdout, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(stdout, "lexical (offline)") {
		t.Fatalf("expected lexical backend summary, got: %q", stdout)
	}
	if !strings.Contains(stdout, "[OK]") {
		t.Fatalf("expected passing preflight, got: %q", stdout)
	}
	if !strings.Contains(stdout, configPath) {
		t.Fatalf("expected config path, got: %q", stdout)
	}
}

func TestStatusCommandReportsMissingKey(t *testing.T) {
	clearBackendEnv(t)
	configPath := writeTestConfig(t, offlineConfig)

	stdout, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(stdout, "GEMINI_API_KEY") {
		t.Fatalf("expected missing key hint, got: %q", stdout)
	}
	if !strings.Contains(stdout, "[ERROR]") {
		t.Fatalf("expected failing preflight, got: %q", stdout)
	}
}

func TestStatusCommandIncludesCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	configPath := writeTestConfig(t, fmt.Sprintf(`[logging]
level = "error"

[backends]
default = "lexical"

[cache]
enabled = true
directory = %q
`, dir))

	stdout, _, err := runCLI(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(stdout, "Score cache") {
		t.Fatalf("expected cache status line, got: %q", stdout)
	}
	if !strings.Contains(stdout, "0 entries") {
		t.Fatalf("expected empty cache detail, got: %q", stdout)
	}
}
