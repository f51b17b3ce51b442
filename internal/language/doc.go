// Package language provides unified language code normalization and mapping.
//
// All language-related conversions (ISO 639-1, ISO 639-2, display names,
// filename hints) are consolidated here to avoid duplication across the
// subtitle, correspondence, and translation packages.
package language
