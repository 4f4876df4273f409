package utils

import "strings"

// SuggestionFilter drops duplicate suggestions and the typed word itself
// when merging results from more than one source.
type SuggestionFilter struct {
	seenWords map[string]bool
}

// NewSuggestionFilter creates a filter that excludes input from results.
func NewSuggestionFilter(input string) *SuggestionFilter {
	seenWords := make(map[string]bool)
	seenWords[strings.ToLower(input)] = true
	return &SuggestionFilter{seenWords: seenWords}
}

// ShouldInclude reports whether word has not been seen yet, and marks it
// seen. Comparison is case-insensitive.
func (f *SuggestionFilter) ShouldInclude(word string) bool {
	lower := strings.ToLower(word)
	if f.seenWords[lower] {
		return false
	}
	f.seenWords[lower] = true
	return true
}
