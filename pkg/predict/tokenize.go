package predict

import (
	"unicode"

	"github.com/rivo/uniseg"
)

// Tokenize splits context text into prediction tokens along Unicode word
// boundaries (UAX #29). Segments carrying no letter or digit, whitespace
// runs and bare punctuation, are dropped. Han ideographs segment one per
// token, which is exactly what character-at-a-time prediction needs, while
// alphabetic scripts keep whole words.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var tokens []string
	state := -1
	var segment string
	for len(text) > 0 {
		segment, text, state = uniseg.FirstWordInString(text, state)
		if hasTokenRune(segment) {
			tokens = append(tokens, segment)
		}
	}
	return tokens
}

func hasTokenRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
