package align

import (
	"fmt"

	"subalign/internal/services"
	"subalign/internal/subtitle"
)

// repair walks the output once and enforces the sequence invariants:
// start < end everywhere, no overlap between adjacent cues. Overlaps are
// repaired minimally by truncating the earlier cue's end to the next cue's
// start, never by reordering. It returns the number of truncations. A cue
// left without positive duration cannot be repaired and yields a fatal
// error, since it means the run produced an inconsistent timeline.
func repair(cues []subtitle.Cue) (int, error) {
	repairs := 0
	for i := 0; i+1 < len(cues); i++ {
		if cues[i].End > cues[i+1].Start {
			cues[i].End = cues[i+1].Start
			repairs++
		}
	}
	for _, cue := range cues {
		if cue.Start >= cue.End {
			return repairs, services.Wrap(services.ErrInconsistent, "align", "validate",
				fmt.Sprintf("cue %d has no positive duration after repair", cue.Index), nil)
		}
	}
	return repairs, nil
}
