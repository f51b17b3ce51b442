package align

import (
	"math"

	"subalign/internal/correspond"
)

// proportionalPosition maps a source position onto the reference axis under
// the assumption that both tracks cover the same content at the same pace.
func proportionalPosition(i, sourceLen, referenceLen int) float64 {
	if sourceLen <= 1 {
		return float64(referenceLen-1) / 2
	}
	return float64(i) * float64(referenceLen-1) / float64(sourceLen-1)
}

// windowPlanner tracks the per-source candidate window on the reference
// axis. Every source cue starts with the base half-width around its
// proportional position; widen doubles the windows of cues that stayed
// unmatched, up to the cap, so sparse regions pay for broader search only
// where the diagonal assumption failed.
type windowPlanner struct {
	sourceLen    int
	referenceLen int
	max          int
	widths       []int
}

func newWindowPlanner(sourceLen, referenceLen, window, maxWindow int) *windowPlanner {
	if window < 1 {
		window = 1
	}
	if maxWindow < window {
		maxWindow = window
	}
	widths := make([]int, sourceLen)
	for i := range widths {
		widths[i] = window
	}
	return &windowPlanner{
		sourceLen:    sourceLen,
		referenceLen: referenceLen,
		max:          maxWindow,
		widths:       widths,
	}
}

func (p *windowPlanner) bounds(i int) (int, int) {
	center := int(math.Round(proportionalPosition(i, p.sourceLen, p.referenceLen)))
	lo := center - p.widths[i]
	hi := center + p.widths[i]
	if lo < 0 {
		lo = 0
	}
	if hi > p.referenceLen-1 {
		hi = p.referenceLen - 1
	}
	return lo, hi
}

// pairs returns every candidate pair inside the current windows, ascending
// by source then reference position.
func (p *windowPlanner) pairs() []correspond.Pair {
	var pairs []correspond.Pair
	for i := 0; i < p.sourceLen; i++ {
		lo, hi := p.bounds(i)
		for j := lo; j <= hi; j++ {
			pairs = append(pairs, correspond.Pair{Source: i, Reference: j})
		}
	}
	return pairs
}

// covered reports whether the window of source i already spans the whole
// reference sequence.
func (p *windowPlanner) covered(i int) bool {
	lo, hi := p.bounds(i)
	return lo == 0 && hi == p.referenceLen-1
}

// widen doubles the window of each listed source position, capped at max.
// It reports whether any window actually grew.
func (p *windowPlanner) widen(sources []int) bool {
	grew := false
	for _, i := range sources {
		if i < 0 || i >= p.sourceLen {
			continue
		}
		if p.widths[i] >= p.max || p.covered(i) {
			continue
		}
		width := p.widths[i] * 2
		if width > p.max {
			width = p.max
		}
		if width != p.widths[i] {
			p.widths[i] = width
			grew = true
		}
	}
	return grew
}
