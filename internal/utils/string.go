package utils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// EqualFoldLower reports whether a and b are equal after lower-casing.
// Unlike strings.EqualFold it does not apply full Unicode case folding,
// which keeps it consistent with ContainsFold.
func EqualFoldLower(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

// ContainsFold checks if s contains substr case-insensitively.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// RuneLen returns the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

var numberPrinter = message.NewPrinter(language.English)

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}
