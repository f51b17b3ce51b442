package correspond

import "strings"

// ScoringPrompt captures the instructions sent to the backend when scoring
// cue correspondence. Keep updates centralized here so it is easy to tweak
// without hunting through call sites.
const ScoringPrompt = `You are a subtitle correspondence judge. You will receive two sets of subtitle cues as JSON:

1. "reference": cues with an "index" and a "text" field.
2. "segments": cues with an "index", a "text" field, and a "candidates" list naming reference indices to judge.

The two sets come from the same content but may be in different languages and use different line breaks or segmentation. For each segment, score each candidate reference cue for how likely the two cues express the same spoken content. Use 1.0 for clearly the same utterance, 0.0 for clearly unrelated, and intermediate values for partial overlap (one cue covering part of the other).

Rules:

- Judge content only. Ignore punctuation, capitalization, and formatting differences.
- A segment may have no good candidate; low scores everywhere are a valid answer.
- Score every candidate listed for a segment, and only those.

Respond as plain JSON text only; do not include markdown or code fences such as ` + "```" + ` or other wrappers.
Respond with a JSON array: [{"index": <segment index>, "scores": [{"ref": <reference index>, "score": <0.0-1.0>}, ...]}, ...].`

// buildScoringPrompt appends language context when the caller knows it.
func buildScoringPrompt(sourceLanguage, referenceLanguage string) string {
	prompt := ScoringPrompt
	var context []string
	if lang := strings.TrimSpace(sourceLanguage); lang != "" {
		context = append(context, "The segments are in "+lang+".")
	}
	if lang := strings.TrimSpace(referenceLanguage); lang != "" {
		context = append(context, "The reference cues are in "+lang+".")
	}
	if len(context) > 0 {
		prompt += "\n\n" + strings.Join(context, " ")
	}
	return prompt
}
