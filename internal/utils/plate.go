package utils

import (
	"strings"
	"unicode"
)

// NormalizePlate upper-cases a plate and drops everything that is not a
// letter or digit, so "ab-123 cd" and "AB123CD" compare equal.
func NormalizePlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range strings.ToUpper(plate) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
