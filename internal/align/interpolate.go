package align

import (
	"subalign/internal/subtitle"
)

// minCueSeconds is the smallest duration the interpolator deliberately
// produces when squeezing gap cues into a tight reference interval.
const minCueSeconds = 0.001

// interpolate builds the output sequence. Matched cues take their reference
// cue's exact timing. Gap runs between two anchors are mapped affinely onto
// the reference interval between those anchors, preserving the source
// track's relative pacing. Gaps before the first or after the last anchor
// are shifted by that anchor's offset and keep the source track's own
// deltas, which may extend slightly beyond the reference track's bounds.
// The one case where an anchor gives up its exact reference timing: a
// leading run with no room before the first anchor delays that anchor's
// start, since a head overlap cannot be settled by end truncation.
// With no matches at all the source timing is returned unchanged.
func interpolate(source, reference []subtitle.Cue, alignment Alignment) []subtitle.Cue {
	out := subtitle.Clone(source)
	matches := alignment.Matches
	if len(matches) == 0 {
		return out
	}

	for _, m := range matches {
		out[m.Source].Start = reference[m.Reference].Start
		out[m.Source].End = reference[m.Reference].End
	}

	first := matches[0]
	if first.Source > 0 {
		shift := reference[first.Reference].Start - source[first.Source].Start
		if source[0].Start+shift >= 0 {
			for i := 0; i < first.Source; i++ {
				out[i].Start = source[i].Start + shift
				out[i].End = source[i].End + shift
			}
		} else {
			// The shift would push leading cues before time zero; compress
			// them into the space before the first anchor instead.
			refStart := reference[first.Reference].Start
			srcFrom := source[0].Start
			span := source[first.Source].Start - srcFrom
			need := float64(first.Source) * minCueSeconds
			if refStart >= need && span > 0 {
				scale := refStart / span
				for i := 0; i < first.Source; i++ {
					out[i].Start = (source[i].Start - srcFrom) * scale
					out[i].End = (source[i].End - srcFrom) * scale
				}
			} else {
				// Too little room before the anchor for every leading cue
				// to keep a visible duration. Pack them at the floor from
				// time zero and delay the anchor's start to make room; the
				// anchor keeps at least the floor itself, and any residual
				// overlap settles in the truncation pass.
				cursor := 0.0
				for i := 0; i < first.Source; i++ {
					out[i].Start = cursor
					out[i].End = cursor + minCueSeconds
					cursor = out[i].End
				}
				if cursor > out[first.Source].Start {
					start := cursor
					if limit := out[first.Source].End - minCueSeconds; start > limit {
						start = limit
					}
					if start > out[first.Source].Start {
						out[first.Source].Start = start
					}
				}
			}
		}
	}

	for k := 0; k+1 < len(matches); k++ {
		if matches[k+1].Source-matches[k].Source > 1 {
			layoutRun(out, source, reference, matches[k], matches[k+1])
		}
	}

	last := matches[len(matches)-1]
	if last.Source < len(source)-1 {
		shift := reference[last.Reference].End - source[last.Source].End
		for i := last.Source + 1; i < len(source); i++ {
			out[i].Start = source[i].Start + shift
			out[i].End = source[i].End + shift
		}
	}
	return out
}

// layoutRun times the gap cues strictly between anchors a and b. The normal
// path maps the source interval (a.end, b.start) affinely onto the reference
// interval between the anchors. When that interval is too tight to give
// every cue a visible duration, the run borrows time from anchor a's tail
// and packs by duration share with no inter-cue slack; the anchor keeps its
// reference timing here and the overlap is settled by the truncation pass,
// which reports it as a repair.
func layoutRun(out, source, reference []subtitle.Cue, a, b Match) {
	runStart, runEnd := a.Source+1, b.Source-1
	count := runEnd - runStart + 1
	srcFrom := source[a.Source].End
	srcTo := source[b.Source].Start
	refFrom := reference[a.Reference].End
	refTo := reference[b.Reference].Start

	need := float64(count) * minCueSeconds
	available := refTo - refFrom
	if available >= need && srcTo > srcFrom {
		scale := available / (srcTo - srcFrom)
		for i := runStart; i <= runEnd; i++ {
			out[i].Start = refFrom + (source[i].Start-srcFrom)*scale
			out[i].End = refFrom + (source[i].End-srcFrom)*scale
		}
		return
	}

	if available < need {
		borrow := need - available
		maxBorrow := (out[a.Source].End - out[a.Source].Start) - minCueSeconds
		if maxBorrow < 0 {
			maxBorrow = 0
		}
		if borrow > maxBorrow {
			borrow = maxBorrow
		}
		refFrom -= borrow
		available = refTo - refFrom
	}

	var total float64
	for i := runStart; i <= runEnd; i++ {
		total += source[i].Duration()
	}
	cursor := refFrom
	for i := runStart; i <= runEnd; i++ {
		width := minCueSeconds
		if available >= need && total > 0 {
			width = available * source[i].Duration() / total
		}
		out[i].Start = cursor
		out[i].End = cursor + width
		cursor = out[i].End
	}
}
