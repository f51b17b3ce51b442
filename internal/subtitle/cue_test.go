package subtitle

import (
	"strings"
	"testing"
)

func TestIssues(t *testing.T) {
	tests := []struct {
		name     string
		cues     []Cue
		fragment string // expected substring of the first issue; "" means valid
	}{
		{
			name: "valid sequence",
			cues: []Cue{
				{Index: 1, Start: 0, End: 1, Text: "a"},
				{Index: 2, Start: 1, End: 2, Text: "b"},
				{Index: 3, Start: 2.5, End: 3, Text: "c"},
			},
		},
		{
			name: "empty sequence valid",
			cues: nil,
		},
		{
			name:     "zero duration",
			cues:     []Cue{{Index: 1, Start: 1, End: 1, Text: "a"}},
			fragment: "not before end",
		},
		{
			name:     "start after end",
			cues:     []Cue{{Index: 1, Start: 2, End: 1, Text: "a"}},
			fragment: "not before end",
		},
		{
			name:     "negative start",
			cues:     []Cue{{Index: 1, Start: -0.5, End: 1, Text: "a"}},
			fragment: "negative start",
		},
		{
			name: "overlap",
			cues: []Cue{
				{Index: 1, Start: 0, End: 2, Text: "a"},
				{Index: 2, Start: 1.5, End: 3, Text: "b"},
			},
			fragment: "overlaps previous",
		},
		{
			name: "duplicate index",
			cues: []Cue{
				{Index: 1, Start: 0, End: 1, Text: "a"},
				{Index: 1, Start: 2, End: 3, Text: "b"},
			},
			fragment: "not increasing",
		},
		{
			name: "decreasing index",
			cues: []Cue{
				{Index: 5, Start: 0, End: 1, Text: "a"},
				{Index: 3, Start: 2, End: 3, Text: "b"},
			},
			fragment: "not increasing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Issues(tt.cues)
			if tt.fragment == "" {
				if len(issues) != 0 {
					t.Fatalf("expected no issues, got %v", issues)
				}
				if err := Validate(tt.cues); err != nil {
					t.Fatalf("Validate returned error for valid sequence: %v", err)
				}
				return
			}
			if len(issues) == 0 {
				t.Fatal("expected issues, got none")
			}
			if !strings.Contains(issues[0], tt.fragment) {
				t.Fatalf("issue %q does not mention %q", issues[0], tt.fragment)
			}
			if err := Validate(tt.cues); err == nil {
				t.Fatal("Validate returned nil for invalid sequence")
			}
		})
	}
}

func TestValidateReportsAdditionalIssueCount(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 2, End: 1, Text: "a"},
		{Index: 1, Start: 3, End: 2, Text: "b"},
	}
	err := Validate(cues)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "more issues") {
		t.Fatalf("expected issue count summary, got %v", err)
	}
}

func TestCueDuration(t *testing.T) {
	cue := Cue{Start: 1.25, End: 3.75}
	if d := cue.Duration(); d != 2.5 {
		t.Fatalf("Duration() = %v, want 2.5", d)
	}
}

func TestClone(t *testing.T) {
	orig := []Cue{{Index: 1, Start: 0, End: 1, Text: "a"}}
	cp := Clone(orig)
	cp[0].Text = "changed"
	if orig[0].Text != "a" {
		t.Fatal("Clone did not copy")
	}
	if Clone(nil) != nil {
		t.Fatal("Clone(nil) should be nil")
	}
}
