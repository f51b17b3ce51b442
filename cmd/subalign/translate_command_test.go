package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"subalign/internal/subtitle"
)

const japaneseSRT = `1
00:00:01,000 --> 00:00:02,500
こんにちは

2
00:00:03,000 --> 00:00:04,000
ありがとう
`

// newTranslationServer fakes an OpenAI-compatible endpoint that translates
// by table lookup over the cue indices in the request payload.
func newTranslationServer(t *testing.T, translations map[int]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected system+user messages, got %d", len(req.Messages))
		}
		var cues []struct {
			Index int    `json:"index"`
			Text  string `json:"text"`
		}
		if err := json.Unmarshal([]byte(req.Messages[len(req.Messages)-1].Content), &cues); err != nil {
			t.Errorf("decode cue payload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		type wire struct {
			Index int    `json:"index"`
			Text  string `json:"text"`
		}
		out := make([]wire, 0, len(cues))
		for _, cue := range cues {
			if text, ok := translations[cue.Index]; ok {
				out = append(out, wire{Index: cue.Index, Text: text})
			}
		}
		content, err := json.Marshal(out)
		if err != nil {
			t.Errorf("encode translations: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": string(content)}},
			},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 12},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

func translateTestConfig(t *testing.T, baseURL string) string {
	t.Helper()
	return writeTestConfig(t, fmt.Sprintf(`[logging]
level = "error"

[backends]
default = "openai"

[backends.openai]
api_key = "test-key"
base_url = %q

[cache]
enabled = false
`, baseURL))
}

func TestTranslateCommandEndToEnd(t *testing.T) {
	srv := newTranslationServer(t, map[int]string{1: "Hello", 2: "Thank you"})
	defer srv.Close()

	dir := t.TempDir()
	configPath := translateTestConfig(t, srv.URL)
	input := writeTestFile(t, dir, "movie.ja.srt", japaneseSRT)
	output := filepath.Join(dir, "movie.en.srt")

	stdout, _, err := runCLI(t, configPath,
		"translate", input, "-o", output, "-d", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !strings.Contains(stdout, "Wrote "+output) {
		t.Fatalf("expected write confirmation, got: %q", stdout)
	}

	got, err := subtitle.ParseSRTFile(output)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("output cues = %d, want 2", len(got))
	}
	if got[0].Text != "Hello" || got[1].Text != "Thank you" {
		t.Fatalf("unexpected translations: %q, %q", got[0].Text, got[1].Text)
	}
	want := subtitle.ParseSRT(japaneseSRT)
	for i := range got {
		if got[i].Start != want[i].Start || got[i].End != want[i].End {
			t.Errorf("cue %d timing changed: [%v, %v]", got[i].Index, got[i].Start, got[i].End)
		}
	}
}

func TestTranslateCommandKeepsMissingCues(t *testing.T) {
	// Backend only answers for cue 1; cue 2 keeps its original text.
	srv := newTranslationServer(t, map[int]string{1: "Hello"})
	defer srv.Close()

	dir := t.TempDir()
	configPath := translateTestConfig(t, srv.URL)
	input := writeTestFile(t, dir, "movie.ja.srt", japaneseSRT)
	output := filepath.Join(dir, "movie.en.srt")

	stdout, _, err := runCLI(t, configPath,
		"translate", input, "-o", output, "-d", "en")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	got, err := subtitle.ParseSRTFile(output)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if got[0].Text != "Hello" {
		t.Fatalf("cue 1 = %q, want translated", got[0].Text)
	}
	if got[1].Text != "ありがとう" {
		t.Fatalf("cue 2 = %q, want original text kept", got[1].Text)
	}
	if !strings.Contains(stdout, "Skipped") {
		t.Fatalf("expected skip count in report, got: %q", stdout)
	}
}

func TestTranslateCommandRejectsLexicalBackend(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, `[logging]
level = "error"

[backends]
default = "lexical"

[cache]
enabled = false
`)
	input := writeTestFile(t, dir, "movie.srt", japaneseSRT)

	_, _, err := runCLI(t, configPath,
		"translate", input, "-o", filepath.Join(dir, "out.srt"), "-d", "en")
	if err == nil {
		t.Fatal("expected error for lexical backend")
	}
	if !strings.Contains(err.Error(), "cannot translate") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTranslateCommandRequiresTargetLanguage(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, offlineConfig)
	input := writeTestFile(t, dir, "movie.srt", japaneseSRT)

	_, _, err := runCLI(t, configPath,
		"translate", input, "-o", filepath.Join(dir, "out.srt"))
	if err == nil {
		t.Fatal("expected error without target language")
	}
	if !strings.Contains(err.Error(), "dst-lang") {
		t.Fatalf("unexpected error: %v", err)
	}
}
