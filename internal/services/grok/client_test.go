package grok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"subalign/internal/services/openai"
)

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(openai.Config{APIKey: "k"})
	if client.Name() != "grok" {
		t.Fatalf("unexpected name %q", client.Name())
	}
	if client.Model() != DefaultModel {
		t.Fatalf("unexpected model %q", client.Model())
	}
}

func TestNewClientOverrides(t *testing.T) {
	client := NewClient(openai.Config{APIKey: "k", Model: "grok-4", Name: "something-else"})
	if client.Name() != "grok" {
		t.Fatalf("name must stay grok, got %q", client.Name())
	}
	if client.Model() != "grok-4" {
		t.Fatalf("explicit model lost, got %q", client.Model())
	}
}

func TestNewClientRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != DefaultModel {
			t.Fatalf("unexpected model %q", req.Model)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{"content": `{"ok":true}`},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewClient(openai.Config{APIKey: "test", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}
