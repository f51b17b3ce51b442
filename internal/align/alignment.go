package align

// Match pairs a source cue position with the reference cue position it was
// matched to, carrying the accepted correspondence score.
type Match struct {
	Source    int
	Reference int
	Score     float64
}

// Alignment is a strictly monotonic partial mapping from source positions to
// reference positions: Matches ascend in both coordinates, and each position
// appears at most once. Source positions absent from Matches are gaps.
type Alignment struct {
	SourceLen    int
	ReferenceLen int
	Matches      []Match
}

// Mapping returns the source-to-reference position map.
func (a Alignment) Mapping() map[int]int {
	mapping := make(map[int]int, len(a.Matches))
	for _, m := range a.Matches {
		mapping[m.Source] = m.Reference
	}
	return mapping
}

// Gaps returns the unmatched source positions in ascending order.
func (a Alignment) Gaps() []int {
	matched := make(map[int]struct{}, len(a.Matches))
	for _, m := range a.Matches {
		matched[m.Source] = struct{}{}
	}
	var gaps []int
	for i := 0; i < a.SourceLen; i++ {
		if _, ok := matched[i]; !ok {
			gaps = append(gaps, i)
		}
	}
	return gaps
}
