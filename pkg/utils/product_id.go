package utils

import (
	"strings"
	"unicode"
)

// NormalizeProductID normalizes a user-input product identifier to the
// canonical snake_case form. Only case, whitespace and punctuation change;
// the words themselves are kept, so distinct IDs stay distinct.
func NormalizeProductID(id string) string {
	var b strings.Builder
	lastUnderscore := true // suppresses a leading underscore
	for _, r := range strings.ToLower(id) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
