package utils

import (
	"strings"
	"unicode"
)

// IsBlank reports whether s has no visible characters.
func IsBlank(s string) bool {
	return strings.TrimFunc(s, unicode.IsSpace) == ""
}

// ContainsControl checks if a string contains control characters
// other than plain whitespace.
func ContainsControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// IsValidQuery checks if input should be processed as an item query.
// Item names carry punctuation ("Hi-Potion", "Grade 8 Tincture"), so only
// blank input and control characters are rejected.
func IsValidQuery(s string) bool {
	if IsBlank(s) {
		return false
	}
	return !ContainsControl(s)
}
