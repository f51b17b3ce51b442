package align

import (
	"math"

	"subalign/internal/correspond"
)

// dpCell carries the running objective for one table cell. Cells compare
// lexicographically: total gain, then match count, then accumulated distance
// from the proportional diagonal (lower is better, preferring matchings
// spread evenly over the reference rather than front- or back-loaded).
type dpCell struct {
	gain    float64
	matches int
	drift   float64
}

func betterCell(a, b dpCell) bool {
	if a.gain != b.gain {
		return a.gain > b.gain
	}
	if a.matches != b.matches {
		return a.matches > b.matches
	}
	return a.drift < b.drift
}

const (
	moveNone byte = iota
	moveMatch
	moveSkipSource
	moveSkipReference
)

// solve computes the best monotonic partial matching by dynamic programming
// over the (M+1)x(N+1) table. Only pairs present in scores at or above the
// threshold may match; each match contributes its score plus matchBonus so
// runs of decent matches beat one isolated high-confidence match. Exact ties
// resolve by fixed move order (match, skip source, skip reference), keeping
// repeated runs over identical scores identical.
func solve(sourceLen, referenceLen int, scores map[correspond.Pair]float64, threshold, matchBonus float64) []Match {
	if sourceLen == 0 || referenceLen == 0 {
		return nil
	}
	cols := referenceLen + 1
	moves := make([]byte, (sourceLen+1)*cols)
	for j := 1; j < cols; j++ {
		moves[j] = moveSkipReference
	}
	prev := make([]dpCell, cols)
	curr := make([]dpCell, cols)

	for i := 1; i <= sourceLen; i++ {
		moves[i*cols] = moveSkipSource
		curr[0] = dpCell{}
		for j := 1; j < cols; j++ {
			best := dpCell{}
			move := moveNone
			consider := func(cand dpCell, m byte) {
				if move == moveNone || betterCell(cand, best) {
					best, move = cand, m
				}
			}
			if score, ok := scores[correspond.Pair{Source: i - 1, Reference: j - 1}]; ok && score >= threshold {
				consider(dpCell{
					gain:    prev[j-1].gain + score + matchBonus,
					matches: prev[j-1].matches + 1,
					drift:   prev[j-1].drift + math.Abs(float64(j-1)-proportionalPosition(i-1, sourceLen, referenceLen)),
				}, moveMatch)
			}
			consider(prev[j], moveSkipSource)
			consider(curr[j-1], moveSkipReference)
			curr[j] = best
			moves[i*cols+j] = move
		}
		prev, curr = curr, prev
	}

	var matches []Match
	i, j := sourceLen, referenceLen
	for i > 0 || j > 0 {
		switch moves[i*cols+j] {
		case moveMatch:
			pair := correspond.Pair{Source: i - 1, Reference: j - 1}
			matches = append(matches, Match{Source: i - 1, Reference: j - 1, Score: scores[pair]})
			i--
			j--
		case moveSkipSource:
			i--
		default:
			j--
		}
	}
	for lo, hi := 0, len(matches)-1; lo < hi; lo, hi = lo+1, hi-1 {
		matches[lo], matches[hi] = matches[hi], matches[lo]
	}
	return matches
}

// unmatchedSources lists source positions absent from the matching.
func unmatchedSources(sourceLen int, matches []Match) []int {
	matched := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		matched[m.Source] = struct{}{}
	}
	var unmatched []int
	for i := 0; i < sourceLen; i++ {
		if _, ok := matched[i]; !ok {
			unmatched = append(unmatched, i)
		}
	}
	return unmatched
}
