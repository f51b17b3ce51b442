package subtitle

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var textNormalizeRe = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// NormalizeText prepares cue text for comparison: Unicode NFC form,
// lowercase, newlines folded to spaces, punctuation and symbols removed,
// whitespace collapsed. NFC first, so precomposed and decomposed renderings
// of the same text hash identically.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\n", " ")
	s = textNormalizeRe.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return s
}

// ContentHash returns a stable hex digest of the cue's normalized text, used
// as the cache key component for correspondence scores.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(sum[:])
}
