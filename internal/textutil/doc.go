// Package textutil provides text processing utilities for fingerprinting,
// similarity, and filename sanitization.
//
// The primary use cases are:
//   - Creating token-based fingerprints from subtitle cue text for comparison
//   - Computing cosine similarity between fingerprints
//   - Sanitizing path segments for safe filesystem use
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// Tokenization lowercases text, splits on separator runs, filters single-rune
// tokens, and expands space-free scripts (CJK, kana, Hangul) into rune bigrams.
package textutil
