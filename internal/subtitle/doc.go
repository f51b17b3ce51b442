// Package subtitle provides the cue data model shared by every part of the
// tool, plus SRT parsing, formatting, and atomic file writing.
//
// Cue sequences are treated as immutable inputs once parsed: alignment and
// translation produce fresh slices rather than mutating what the parser
// returned. Validate enforces the sequence invariants (sorted, non-overlapping,
// increasing indices); parsing itself stays lenient so a single damaged block
// does not reject a whole file.
package subtitle
