package prompt

import "unicode/utf8"

// CountTokens estimates the token count for content using runes/4 approximation.
// Uses rune count (not byte count) to handle unicode correctly.
func CountTokens(content string) int {
	if len(content) == 0 {
		return 0
	}
	return utf8.RuneCountInString(content) / 4
}

// Length returns the rune length of s. Length budgets in Constraints are
// measured in characters, not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}
