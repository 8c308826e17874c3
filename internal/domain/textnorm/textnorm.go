// Package textnorm produces punctuation-insensitive forms of transcript text.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize strips every rune that is not a letter or a number from both
// ends of text. Combining marks count as part of the letter they follow.
// Normalize is idempotent.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	return strings.TrimFunc(text, func(r rune) bool { return !isWordRune(r) })
}

// Key returns the matching form used by alignment: compatibility-composed,
// case-folded, with every non letter/number rune removed. Two strings that
// differ only in punctuation, spacing or case share a key.
func Key(text string) string {
	folded := cases.Fold().String(norm.NFKC.String(text))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if isWordRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsBlank reports whether text has no letters or numbers at all.
func IsBlank(text string) bool {
	return strings.IndexFunc(text, isWordRune) < 0
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}
