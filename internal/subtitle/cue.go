package subtitle

import (
	"errors"
	"fmt"
)

// Cue represents a single subtitle cue with timing and text. Start and End
// are seconds with millisecond precision, the resolution of the SRT format.
type Cue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Duration returns the cue length in seconds.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// Issues walks a cue sequence once and reports every structural violation:
// negative timestamps, non-positive durations, out-of-order cues, overlaps,
// and non-increasing indices. An empty slice means the sequence is valid.
// An empty sequence is valid.
func Issues(cues []Cue) []string {
	var issues []string
	prevIndex := 0
	for i, cue := range cues {
		if cue.Index <= prevIndex {
			issues = append(issues, fmt.Sprintf("cue %d: index %d not increasing (previous %d)", i+1, cue.Index, prevIndex))
		}
		prevIndex = cue.Index
		if cue.Start < 0 {
			issues = append(issues, fmt.Sprintf("cue %d: negative start %.3f", cue.Index, cue.Start))
		}
		if cue.Start >= cue.End {
			issues = append(issues, fmt.Sprintf("cue %d: start %.3f not before end %.3f", cue.Index, cue.Start, cue.End))
		}
		if i > 0 && cues[i-1].End > cue.Start {
			issues = append(issues, fmt.Sprintf("cue %d: overlaps previous cue (%.3f > %.3f)", cue.Index, cues[i-1].End, cue.Start))
		}
	}
	return issues
}

// Validate returns an error describing the first structural violation in the
// sequence, or nil when the sequence satisfies the cue invariants.
func Validate(cues []Cue) error {
	issues := Issues(cues)
	if len(issues) == 0 {
		return nil
	}
	if len(issues) == 1 {
		return errors.New(issues[0])
	}
	return fmt.Errorf("%s (and %d more issues)", issues[0], len(issues)-1)
}

// Clone returns a deep copy of the cue slice.
func Clone(cues []Cue) []Cue {
	if cues == nil {
		return nil
	}
	out := make([]Cue, len(cues))
	copy(out, cues)
	return out
}
