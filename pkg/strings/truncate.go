// Package strings holds text helpers for terminal output.
package strings

import (
	"strings"
)

// DefaultExcerptLen is the width used for error and page text cells in
// tables.
const DefaultExcerptLen = 60

// minExcerptLen leaves room for one character plus "...".
const minExcerptLen = 4

// Excerpt flattens s onto a single line, collapsing runs of whitespace, and
// cuts it to at most maxLen runes with a trailing "...". Values of maxLen
// below 4 are raised to 4.
func Excerpt(s string, maxLen int) string {
	if maxLen < minExcerptLen {
		maxLen = minExcerptLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// FirstLine returns s up to its first newline.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r")
}
