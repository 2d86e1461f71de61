package sparse

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text, replaces every rune that is not a letter, digit,
// or whitespace with a space, splits on whitespace, and drops single
// character tokens. It is the tokenization behind the keyword analyzer
// registered with Bleve.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
