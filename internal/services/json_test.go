package services_test

import (
	"testing"

	"subalign/internal/services"
)

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		OK    bool    `json:"ok"`
		Score float64 `json:"score"`
	}

	tests := []struct {
		name    string
		content string
		wantOK  bool
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"ok": true, "score": 0.9}`,
			wantOK:  true,
		},
		{
			name:    "fenced json block",
			content: "```json\n{\"ok\": true, \"score\": 0.5}\n```",
			wantOK:  true,
		},
		{
			name:    "fence without language tag",
			content: "```\n{\"ok\": true}\n```",
			wantOK:  true,
		},
		{
			name:    "surrounding prose",
			content: "Here is the result you asked for: {\"ok\": true} Hope that helps!",
			wantOK:  true,
		},
		{
			name:    "empty payload",
			content: "   ",
			wantErr: true,
		},
		{
			name:    "no json at all",
			content: "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "truncated object",
			content: `{"ok": true, "score":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got payload
			err := services.DecodeJSON(tt.content, &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON: %v", err)
			}
			if got.OK != tt.wantOK {
				t.Fatalf("ok = %v, want %v", got.OK, tt.wantOK)
			}
		})
	}
}

func TestDecodeJSONArray(t *testing.T) {
	var got []struct {
		Index int `json:"index"`
	}
	content := "The aligned entries follow.\n```json\n[{\"index\": 1}, {\"index\": 2}]\n```"
	if err := services.DecodeJSON(content, &got); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(got) != 2 || got[0].Index != 1 || got[1].Index != 2 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestSummarizeSnippet(t *testing.T) {
	if got := services.SummarizeSnippet(""); got != "<empty>" {
		t.Fatalf("empty snippet = %q", got)
	}
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	snippet := services.SummarizeSnippet(string(long))
	if len(snippet) > 170 {
		t.Fatalf("snippet too long: %d", len(snippet))
	}
	multi := services.SummarizeSnippet("line one\nline two\tend")
	if multi != "line one line two end" {
		t.Fatalf("unexpected flattening: %q", multi)
	}
}
