package subtitle

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:02,500
Hello there.

2
00:00:03,000 --> 00:00:04,250
General Kenobi!
You are a bold one.

3
00:00:05,000 --> 00:00:06,000
`

func TestParseSRT(t *testing.T) {
	cues := ParseSRT(sampleSRT)
	if len(cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(cues))
	}
	if cues[0].Index != 1 || cues[0].Start != 1.0 || cues[0].End != 2.5 {
		t.Fatalf("unexpected first cue: %+v", cues[0])
	}
	if cues[1].Text != "General Kenobi!\nYou are a bold one." {
		t.Fatalf("expected multiline text preserved, got %q", cues[1].Text)
	}
	if cues[2].Text != "" {
		t.Fatalf("expected empty text for bare cue, got %q", cues[2].Text)
	}
}

func TestParseSRTToleratesCRLFAndBOM(t *testing.T) {
	content := "\uFEFF1\r\n00:00:01,000 --> 00:00:02,000\r\nLine one.\r\n\r\n2\r\n00:00:03,000 --> 00:00:04,000\r\nLine two.\r\n"
	cues := ParseSRT(content)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Text != "Line one." {
		t.Fatalf("unexpected text: %q", cues[0].Text)
	}
}

func TestParseSRTSkipsDamagedBlocks(t *testing.T) {
	content := `not-a-number
00:00:01,000 --> 00:00:02,000
Skipped.

2
bad timing line
Skipped too.

3
00:00:05,000 --> 00:00:06,000
Kept.
`
	cues := ParseSRT(content)
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
	if cues[0].Index != 3 || cues[0].Text != "Kept." {
		t.Fatalf("unexpected surviving cue: %+v", cues[0])
	}
}

func TestParseSRTEmpty(t *testing.T) {
	if cues := ParseSRT(""); cues != nil {
		t.Fatalf("expected nil for empty content, got %v", cues)
	}
	if cues := ParseSRT("   \n\n  "); cues != nil {
		t.Fatalf("expected nil for blank content, got %v", cues)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"00:00:01,000", 1.0, false},
		{"00:01:02,500", 62.5, false},
		{"01:02:03,004", 3723.004, false},
		{"00:00:01.250", 1.25, false}, // period separator accepted
		{" 00:00:05,000 ", 5.0, false},
		{"", 0, true},
		{"00:01,000", 0, true},
		{"aa:bb:cc,ddd", 0, true},
		{"00:00:01", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{62.25, "00:01:02,250"},
		{3723.004, "01:02:03,004"},
		{-2, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.input); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSRTRoundTrip(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 0.001, End: 2.345, Text: "First line."},
		{Index: 2, Start: 3.0, End: 4.5, Text: "Second\nspans two lines."},
		{Index: 7, Start: 10.25, End: 12.0, Text: "Gap in numbering kept."},
	}
	parsed := ParseSRT(FormatSRT(cues))
	if len(parsed) != len(cues) {
		t.Fatalf("round trip changed cue count: %d != %d", len(parsed), len(cues))
	}
	for i := range cues {
		if parsed[i].Index != cues[i].Index || parsed[i].Text != cues[i].Text {
			t.Fatalf("cue %d mismatch: %+v != %+v", i, parsed[i], cues[i])
		}
		if math.Abs(parsed[i].Start-cues[i].Start) > 0.0005 || math.Abs(parsed[i].End-cues[i].End) > 0.0005 {
			t.Fatalf("cue %d timing drifted: %+v != %+v", i, parsed[i], cues[i])
		}
	}
}

func TestWriteSRTFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.srt")
	cues := []Cue{{Index: 1, Start: 1, End: 2, Text: "Written."}}

	if err := WriteSRTFile(path, cues); err != nil {
		t.Fatalf("WriteSRTFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "Written.") {
		t.Fatalf("unexpected content: %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the output file, found %d entries", len(entries))
	}
}

func TestParseSRTFileMissing(t *testing.T) {
	if _, err := ParseSRTFile(filepath.Join(t.TempDir(), "missing.srt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
