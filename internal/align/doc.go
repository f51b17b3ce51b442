// Package align computes reference-conformed timings for a subtitle track.
//
// A run scores candidate source/reference cue pairs through a correspond
// scorer, restricted to windows around the proportional diagonal, then solves
// a monotonic partial matching by dynamic programming. Matched cues take
// their reference cue's exact timing; unmatched cues are interpolated between
// the surrounding anchors. A final validation pass repairs overlaps by
// truncation. Sparse matches degrade to interpolation, never to errors; only
// invalid input, an unavailable backend, cancellation, or an unrepairable
// timeline aborts a run.
package align
