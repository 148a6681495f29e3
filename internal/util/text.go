package util

import (
	"strings"
	"unicode"
)

// Truncate shortens s to at most maxRunes runes, cutting at the last word
// boundary when one exists and appending "...". Whitespace runs are
// collapsed first.
func Truncate(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(r[:maxRunes])
	}

	cut := r[:maxRunes-3]
	if i := lastSpace(cut); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRightFunc(string(cut), func(c rune) bool {
		return unicode.IsSpace(c) || unicode.IsPunct(c)
	}) + "..."
}

func lastSpace(r []rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == ' ' {
			return i
		}
	}
	return -1
}
