package suggest

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// maxEditDistance bounds how far a typo may drift from a known word
// before correction gives up.
const maxEditDistance = 2

// minCorrectionLength is the shortest input worth correcting. One and two
// letter inputs are almost always intentional.
const minCorrectionLength = 3

// Corrector suggests spelling corrections against a fixed vocabulary.
// Candidates must share the input's first letter and sit within
// maxEditDistance edits; among those, smaller distance wins, then higher
// frequency, then byte order.
type Corrector struct {
	words []string
	freqs map[string]int
}

// NewCorrector builds a corrector over a word to frequency table. Words
// are folded to lower case; duplicates keep the higher frequency.
func NewCorrector(freqs map[string]int) *Corrector {
	folded := make(map[string]int, len(freqs))
	for word, frequency := range freqs {
		lower := strings.ToLower(word)
		if prev, ok := folded[lower]; !ok || frequency > prev {
			folded[lower] = frequency
		}
	}
	words := make([]string, 0, len(folded))
	for word := range folded {
		words = append(words, word)
	}
	sort.Strings(words)
	return &Corrector{words: words, freqs: folded}
}

// Correct returns the best correction for input and whether a correction
// was made. Known words come back lowercased with false; inputs too short
// to judge, or with no candidate in range, come back unchanged with false.
func (cr *Corrector) Correct(input string) (string, bool) {
	lower := strings.ToLower(input)
	if _, ok := cr.freqs[lower]; ok {
		return lower, false
	}
	if utf8.RuneCountInString(lower) < minCorrectionLength {
		return input, false
	}

	first, _ := utf8.DecodeRuneInString(lower)
	inputLen := utf8.RuneCountInString(lower)

	best := ""
	bestDistance := maxEditDistance + 1
	bestFrequency := -1
	for _, word := range cr.words {
		leading, _ := utf8.DecodeRuneInString(word)
		if leading != first {
			continue
		}
		// Edit distance is at least the length difference.
		lengthDiff := utf8.RuneCountInString(word) - inputLen
		if lengthDiff > maxEditDistance || lengthDiff < -maxEditDistance {
			continue
		}
		distance := levenshteinDistance(lower, word)
		if distance > maxEditDistance {
			continue
		}
		frequency := cr.freqs[word]
		if distance < bestDistance ||
			(distance == bestDistance && frequency > bestFrequency) {
			best = word
			bestDistance = distance
			bestFrequency = frequency
		}
	}

	if best == "" {
		return input, false
	}
	return best, true
}

// Len reports the vocabulary size.
func (cr *Corrector) Len() int { return len(cr.words) }

// levenshteinDistance computes the edit distance between a and b over
// runes, counting insertions, deletions and substitutions at unit cost.
func levenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
