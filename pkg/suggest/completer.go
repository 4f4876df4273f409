// Package suggest provides prefix word completion over a patricia trie,
// with a typo-tolerant corrector for prefixes that complete to nothing.
//
// A Completer is seeded once, from a model's unigram table, from the words
// of a dictionary store, or word by word, and is then read-only. Complete
// is safe for concurrent use after seeding is finished.
package suggest

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/keylex/keylex/internal/utils"
	"github.com/keylex/keylex/pkg/dict"
	"github.com/keylex/keylex/pkg/ngram"

	"github.com/tchap/go-patricia/v2/patricia"
)

// Suggestion is one completion candidate for a typed prefix.
type Suggestion struct {
	Word      string
	Frequency int
}

// Completer answers prefix queries against a word to frequency table.
type Completer struct {
	trie *patricia.Trie
	// MinFrequency drops candidates below this count. Prefixes of one or
	// two bytes, and repetitive ones like "aaa", are held to double the
	// floor since their subtrees are large and mostly junk. Zero disables
	// the filter.
	MinFrequency int

	freqs        map[string]int
	maxFrequency int
}

func NewCompleter() *Completer {
	return &Completer{
		trie:  patricia.NewTrie(),
		freqs: make(map[string]int),
	}
}

// Add inserts a word with its frequency. Words are folded to lower case;
// re-adding a word keeps the higher frequency.
func (c *Completer) Add(word string, frequency int) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	if prev, ok := c.freqs[word]; ok && prev >= frequency {
		return
	}
	// Set rather than Insert: re-adding an existing word must replace the
	// stored frequency, and Insert leaves the old item in place.
	c.trie.Set(patricia.Prefix(word), frequency)
	c.freqs[word] = frequency
	if frequency > c.maxFrequency {
		c.maxFrequency = frequency
	}
}

// AddModel seeds the completer from a model's unigram table and reports
// how many words were taken.
func (c *Completer) AddModel(model *ngram.Model) int {
	unigrams := model.Unigrams()
	for word, count := range unigrams {
		c.Add(word, count)
	}
	log.Debugf("completer seeded from model: %d unigrams", len(unigrams))
	return len(unigrams)
}

// AddStore seeds the completer from every word in a dictionary store.
// Stored words carry no counts, so they enter at frequency 1; a word
// already seeded from a model keeps its model frequency. Packed Unihan
// records sharing the store are skipped: their keys are big-endian code
// points, which always lead with a zero byte, and words never do.
func (c *Completer) AddStore(store *dict.Store) (int, error) {
	added := 0
	err := store.Visit(func(word, _ string) error {
		if strings.HasPrefix(word, "\x00") || !utf8.ValidString(word) {
			return nil
		}
		c.Add(word, 1)
		added++
		return nil
	})
	if err != nil {
		return added, err
	}
	log.Debugf("completer seeded from store: %d words", added)
	return added, nil
}

// Complete returns words extending prefix, ranked by frequency descending
// with ties broken by word in ascending byte order. The bare prefix itself
// is never returned. An empty or unknown prefix yields no suggestions, and
// limit <= 0 means unlimited.
func (c *Completer) Complete(prefix string, limit int) []Suggestion {
	if prefix == "" {
		return nil
	}

	lower := strings.ToLower(prefix)

	minFrequency := c.MinFrequency
	if minFrequency > 0 && (len(lower) <= 2 || utils.IsRepetitive(lower)) {
		minFrequency *= 2
	}

	var suggestions []Suggestion
	err := c.trie.VisitSubtree(patricia.Prefix(lower), func(p patricia.Prefix, item patricia.Item) error {
		word := string(p)
		if word == lower {
			return nil
		}
		frequency, ok := item.(int)
		if !ok {
			log.Errorf("unexpected trie item type %T for %q", item, word)
			return nil
		}
		if frequency < minFrequency {
			return nil
		}
		suggestions = append(suggestions, Suggestion{
			Word:      applyCase(prefix, word),
			Frequency: frequency,
		})
		return nil
	})
	if err != nil {
		log.Errorf("trie visit for %q: %v", prefix, err)
		return nil
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Frequency != suggestions[j].Frequency {
			return suggestions[i].Frequency > suggestions[j].Frequency
		}
		return suggestions[i].Word < suggestions[j].Word
	})
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// Corrector builds a typo corrector over the completer's current
// vocabulary. Build it after seeding; later Adds are not reflected.
func (c *Completer) Corrector() *Corrector {
	return NewCorrector(c.freqs)
}

// Frequency reports the stored frequency for an exact word, case-folded.
func (c *Completer) Frequency(word string) (int, bool) {
	frequency, ok := c.freqs[strings.ToLower(word)]
	return frequency, ok
}

// Len reports the number of distinct words held.
func (c *Completer) Len() int { return len(c.freqs) }

// MaxFrequency reports the highest frequency seen so far.
func (c *Completer) MaxFrequency() int { return c.maxFrequency }

// applyCase copies the capitalization pattern of the typed prefix onto a
// stored lowercase word, so "App" completes to "Apple". ASCII only; other
// scripts pass through untouched.
func applyCase(prefix, word string) string {
	hasUpper := false
	for _, r := range prefix {
		if r >= 'A' && r <= 'Z' {
			hasUpper = true
			break
		}
	}
	if !hasUpper {
		return word
	}

	prefixRunes := []rune(prefix)
	wordRunes := []rune(word)
	for i := 0; i < len(wordRunes) && i < len(prefixRunes); i++ {
		if prefixRunes[i] >= 'A' && prefixRunes[i] <= 'Z' &&
			wordRunes[i] >= 'a' && wordRunes[i] <= 'z' {
			wordRunes[i] = wordRunes[i] - 'a' + 'A'
		}
	}
	return string(wordRunes)
}
