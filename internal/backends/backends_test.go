package backends_test

import (
	"testing"

	"subalign/internal/backends"
	"subalign/internal/config"
)

func TestNewBuildsEachProvider(t *testing.T) {
	cfg := config.Default()
	for _, name := range config.BackendNames() {
		resolved, err := cfg.ResolveBackend(name)
		if err != nil {
			t.Fatalf("ResolveBackend(%q) failed: %v", name, err)
		}
		client, err := backends.New(resolved)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if client.Name() != name {
			t.Fatalf("client name %q, want %q", client.Name(), name)
		}
		if client.Model() == "" {
			t.Fatalf("client %q reports empty model", name)
		}
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	if _, err := backends.New(config.BackendConfig{Name: "claude"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := backends.New(config.BackendConfig{Name: config.LexicalBackend}); err == nil {
		t.Fatal("expected error for lexical backend")
	}
}
