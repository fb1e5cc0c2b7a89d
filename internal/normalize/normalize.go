// Package normalize provides the canonical text forms used for exact cache
// keys and matcher preprocessing.
//
// The same question arrives with cosmetic differences: punctuation,
// full-width vs half-width characters, shuffled option order. Normalization
// collapses those so one question maps to one cache row.
package normalize

import (
	"sort"
	"strings"
	"unicode"
)

// Text lowercases s and strips every rune that is not a letter, a digit or a
// CJK ideograph. Whitespace and punctuation (both ASCII and full-width)
// disappear entirely. The function is idempotent.
func Text(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keepRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	// CJK ideographs are letters in Unicode terms, but be explicit about the
	// core block the question corpus lives in.
	return r >= 0x4e00 && r <= 0x9fff
}

// Options normalizes each option and sorts the result lexicographically.
// Option order in the original question is semantically irrelevant for cache
// identity; sorting makes shuffled requests key identically. Returns nil for
// an absent or empty input.
func Options(opts []string) []string {
	if len(opts) == 0 {
		return nil
	}
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = Text(o)
	}
	sort.Strings(out)
	return out
}
