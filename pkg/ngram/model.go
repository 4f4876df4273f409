/*
Package ngram holds the in-memory frequency table behind next-token
prediction: a mapping from an observed context (the ordered tokens preceding
a position) to the tokens seen next and how often.

The table is loaded once from a counts file produced by the offline pipeline
and never mutated afterwards, so a Model is safe to share across goroutines.

Source format, one observation per line:

	tok1 tok2 ... tokN COUNT

Fields are separated by spaces or tabs. The last field is the decimal count,
the preceding N tokens are the n-gram; its first N-1 tokens form the context
and token N is the candidate. A unigram line is just "token COUNT". Blank
lines and lines starting with # are skipped. Counts for repeated n-grams
accumulate, so split sources can be concatenated.
*/
package ngram

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// DefaultMaxOrder bounds the n-gram length accepted from a source when the
// caller does not choose one. Trigrams are the practical ceiling for
// on-device tables.
const DefaultMaxOrder = 3

// ErrBadSource reports a counts file this loader cannot accept.
var ErrBadSource = errors.New("ngram: malformed frequency source")

// scannerBufSize bounds one source line; generated counts files stay far
// below this, but a corrupt file must not kill the scanner silently.
const scannerBufSize = 1024 * 1024

// Model is the immutable context→candidate→count table.
type Model struct {
	contexts map[string]map[string]int
	maxOrder int
	entries  int
}

// Load reads a counts file from disk. maxOrder caps the accepted n-gram
// length; zero or negative selects DefaultMaxOrder. A malformed line fails
// the whole load: a partially read table would serve skewed rankings.
func Load(path string, maxOrder int) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ngram: load %s: %w", path, err)
	}
	defer f.Close()

	m, err := Read(f, maxOrder)
	if err != nil {
		return nil, fmt.Errorf("ngram: load %s: %w", path, err)
	}
	return m, nil
}

// Read parses a counts source. See Load.
func Read(r io.Reader, maxOrder int) (*Model, error) {
	if maxOrder <= 0 {
		maxOrder = DefaultMaxOrder
	}

	m := &Model{contexts: make(map[string]map[string]int)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), scannerBufSize)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: want \"tokens... count\", got %q", ErrBadSource, lineNo, line)
		}

		count, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil || count < 0 {
			return nil, fmt.Errorf("%w: line %d: bad count %q", ErrBadSource, lineNo, fields[len(fields)-1])
		}

		order := len(fields) - 1
		if order > maxOrder {
			return nil, fmt.Errorf("%w: line %d: order %d exceeds max order %d", ErrBadSource, lineNo, order, maxOrder)
		}

		context := contextKey(fields[:order-1])
		candidate := fields[order-1]

		candidates := m.contexts[context]
		if candidates == nil {
			candidates = make(map[string]int)
			m.contexts[context] = candidates
		}
		if _, seen := candidates[candidate]; !seen {
			m.entries++
		}
		candidates[candidate] += count

		if order > m.maxOrder {
			m.maxOrder = order
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSource, err)
	}

	log.Debugf("Loaded ngram table: %d contexts, %d entries, max order %d",
		len(m.contexts), m.entries, m.maxOrder)
	return m, nil
}

// Frequencies returns the candidate counts observed after context, keyed by
// candidate token. A context never observed returns nil: absence of data at
// this order, not an error. The empty context selects the unigram counts.
//
// The returned map is the model's own table. It is shared and read-only;
// callers must not modify it.
func (m *Model) Frequencies(context []string) map[string]int {
	return m.contexts[contextKey(context)]
}

// Unigrams returns a copy of the order-1 counts, for callers that need to
// build their own structures over the vocabulary.
func (m *Model) Unigrams() map[string]int {
	src := m.contexts[""]
	out := make(map[string]int, len(src))
	for tok, n := range src {
		out[tok] = n
	}
	return out
}

// MaxOrder reports the highest n-gram order present in the source.
func (m *Model) MaxOrder() int {
	return m.maxOrder
}

// Contexts reports the number of distinct contexts in the table.
func (m *Model) Contexts() int {
	return len(m.contexts)
}

// Entries reports the number of distinct (context, candidate) pairs.
func (m *Model) Entries() int {
	return m.entries
}

// contextKey flattens an ordered token sequence into a map key. Tokens come
// from whitespace splitting and so never contain spaces themselves.
func contextKey(tokens []string) string {
	return strings.Join(tokens, " ")
}
