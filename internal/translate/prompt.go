package translate

import "strings"

// TranslationPrompt captures the instructions sent to the backend when
// translating cue text. Keep updates centralized here so it is easy to
// tweak without hunting through call sites.
const TranslationPrompt = `You are a professional subtitle translator. You will receive subtitle cues as a JSON array of objects with an "index" and a "text" field. Translate each cue's text from the source language to the target language.

Rules:

- Preserve the meaning, tone, and natural phrasing of each cue.
- Do not add, remove, merge, or reorder cues; return one object per input cue with its index unchanged.
- Each object's "text" must be the translation of the cue with the same index; never move content between cues.

Respond as plain JSON text only; do not include markdown or code fences such as ` + "```" + ` or other wrappers.
Respond with a JSON array: [{"index": <cue index>, "text": <translated text>}, ...].`

// buildTranslationPrompt names the language pair and appends any
// caller-supplied instructions.
func buildTranslationPrompt(sourceLanguage, targetLanguage, instructions string) string {
	prompt := TranslationPrompt
	var context []string
	if lang := strings.TrimSpace(sourceLanguage); lang != "" {
		context = append(context, "The source language is "+lang+".")
	}
	if lang := strings.TrimSpace(targetLanguage); lang != "" {
		context = append(context, "The target language is "+lang+".")
	}
	if len(context) > 0 {
		prompt += "\n\n" + strings.Join(context, " ")
	}
	if extra := strings.TrimSpace(instructions); extra != "" {
		prompt += "\n\nAdditional instructions:\n" + extra
	}
	return prompt
}
