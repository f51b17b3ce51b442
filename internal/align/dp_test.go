package align

import (
	"math/rand"
	"reflect"
	"testing"

	"subalign/internal/correspond"
)

func assertMonotonic(t *testing.T, matches []Match) {
	t.Helper()
	for i := 1; i < len(matches); i++ {
		if matches[i].Source <= matches[i-1].Source || matches[i].Reference <= matches[i-1].Reference {
			t.Fatalf("matching not strictly monotonic at %d: %+v", i, matches)
		}
	}
}

func TestSolveDiagonalMatchesAll(t *testing.T) {
	scores := map[correspond.Pair]float64{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				scores[correspond.Pair{Source: i, Reference: j}] = 1.0
			} else {
				scores[correspond.Pair{Source: i, Reference: j}] = 0.0
			}
		}
	}

	matches := solve(3, 3, scores, DefaultThreshold, DefaultMatchBonus)
	want := []Match{
		{Source: 0, Reference: 0, Score: 1.0},
		{Source: 1, Reference: 1, Score: 1.0},
		{Source: 2, Reference: 2, Score: 1.0},
	}
	if !reflect.DeepEqual(matches, want) {
		t.Fatalf("unexpected matching: %+v", matches)
	}
}

func TestSolvePrefersLongerRunOverIsolatedMatch(t *testing.T) {
	scores := map[correspond.Pair]float64{
		{Source: 0, Reference: 1}: 0.99,
		{Source: 0, Reference: 0}: 0.70,
		{Source: 1, Reference: 1}: 0.70,
	}

	matches := solve(2, 2, scores, DefaultThreshold, DefaultMatchBonus)
	if len(matches) != 2 {
		t.Fatalf("expected the two-match run to win, got %+v", matches)
	}
	if matches[0].Reference != 0 || matches[1].Reference != 1 {
		t.Fatalf("unexpected matching: %+v", matches)
	}
	assertMonotonic(t, matches)
}

func TestSolveThresholdLeavesGaps(t *testing.T) {
	scores := map[correspond.Pair]float64{
		{Source: 0, Reference: 0}: 0.9,
		{Source: 1, Reference: 1}: 0.5,
	}

	matches := solve(2, 2, scores, 0.65, DefaultMatchBonus)
	if len(matches) != 1 || matches[0].Source != 0 {
		t.Fatalf("below-threshold pair must stay unmatched: %+v", matches)
	}
	if got := unmatchedSources(2, matches); len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected gaps: %v", got)
	}
}

func TestSolveTieBreakPrefersProportionalPosition(t *testing.T) {
	// One source cue, three equally scored candidates: the middle reference
	// position is closest to the proportional expectation.
	scores := map[correspond.Pair]float64{
		{Source: 0, Reference: 0}: 0.8,
		{Source: 0, Reference: 1}: 0.8,
		{Source: 0, Reference: 2}: 0.8,
	}

	matches := solve(1, 3, scores, DefaultThreshold, DefaultMatchBonus)
	if len(matches) != 1 || matches[0].Reference != 1 {
		t.Fatalf("expected the centered candidate, got %+v", matches)
	}
}

func TestSolveRejectsCrossings(t *testing.T) {
	scores := map[correspond.Pair]float64{
		{Source: 0, Reference: 2}: 0.9,
		{Source: 1, Reference: 1}: 0.9,
		{Source: 2, Reference: 0}: 0.9,
	}

	matches := solve(3, 3, scores, DefaultThreshold, DefaultMatchBonus)
	assertMonotonic(t, matches)
	if len(matches) != 1 || matches[0].Source != 1 || matches[0].Reference != 1 {
		t.Fatalf("expected the single diagonal-nearest match, got %+v", matches)
	}
}

func TestSolveDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	scores := map[correspond.Pair]float64{}
	for i := 0; i < 30; i++ {
		for j := 0; j < 40; j++ {
			scores[correspond.Pair{Source: i, Reference: j}] = rng.Float64()
		}
	}

	first := solve(30, 40, scores, 0.65, DefaultMatchBonus)
	second := solve(30, 40, scores, 0.65, DefaultMatchBonus)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs produced different matchings")
	}
	assertMonotonic(t, first)
}

func TestSolveEmptyInputs(t *testing.T) {
	if got := solve(0, 5, nil, DefaultThreshold, DefaultMatchBonus); got != nil {
		t.Fatalf("expected nil matching for empty source, got %+v", got)
	}
	if got := solve(5, 0, nil, DefaultThreshold, DefaultMatchBonus); got != nil {
		t.Fatalf("expected nil matching for empty reference, got %+v", got)
	}
}
