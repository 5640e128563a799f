package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize builds the comparison key for an item name or query.
// The text is NFC-composed, every whitespace rune is dropped and the
// result is lower-cased, so "Fire  Shard" and "fireshard" share a key.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// NormalizeAny is Normalize for loosely typed values.
// Anything that is not a string yields "".
func NormalizeAny(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Normalize(s)
}
