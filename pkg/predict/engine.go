// Package predict turns n-gram frequency data into ranked next-token
// predictions with back-off.
//
// The engine keys the model on the trailing window of the tokenized
// context. When the longest window has no observations it backs off one
// token at a time, down to the unigram table, so sparse models still
// produce suggestions. Rankings for recently seen windows are held in a
// small LRU cache.
package predict

import (
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/keylex/keylex/pkg/ngram"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Defaults applied by FromModel when an Options field is zero.
const (
	DefaultLimit     = 10
	DefaultCacheSize = 512
)

// Prediction is one ranked next-token candidate. Score is the raw
// observation count from the model order that produced it; scores from
// different back-off levels are not comparable with each other.
type Prediction struct {
	Token string
	Score int
}

// Options control engine behavior.
type Options struct {
	// MaxOrder bounds the n-gram orders consulted. The context window is
	// at most MaxOrder-1 tokens. Zero means ngram.DefaultMaxOrder.
	MaxOrder int
	// Limit caps the number of predictions returned per call.
	// Zero means DefaultLimit.
	Limit int
	// CacheSize is the number of ranked windows kept in the LRU cache.
	// Zero means DefaultCacheSize, negative disables caching.
	CacheSize int
}

// Engine produces ranked predictions from a loaded n-gram model.
// It is safe for concurrent use.
type Engine struct {
	model    *ngram.Model
	maxOrder int
	limit    int
	cache    *lru.Cache[string, []Prediction]
}

// NewEngine loads the counts file at path and builds an engine around it.
// A missing or malformed file surfaces here, at construction, not on the
// first Predict call.
func NewEngine(path string, opts Options) (*Engine, error) {
	maxOrder := opts.MaxOrder
	if maxOrder <= 0 {
		maxOrder = ngram.DefaultMaxOrder
	}
	model, err := ngram.Load(path, maxOrder)
	if err != nil {
		return nil, err
	}
	return FromModel(model, opts), nil
}

// FromModel builds an engine around an already loaded model. The model is
// shared, not copied; callers must not mutate it afterwards.
func FromModel(model *ngram.Model, opts Options) *Engine {
	e := &Engine{
		model:    model,
		maxOrder: opts.MaxOrder,
		limit:    opts.Limit,
	}
	if e.maxOrder <= 0 {
		e.maxOrder = ngram.DefaultMaxOrder
	}
	if e.limit <= 0 {
		e.limit = DefaultLimit
	}
	size := opts.CacheSize
	if size == 0 {
		size = DefaultCacheSize
	}
	if size > 0 {
		// lru.New only fails on a non-positive size, which is excluded here.
		e.cache, _ = lru.New[string, []Prediction](size)
	}
	log.Debugf("predict engine ready: maxOrder=%d limit=%d cache=%d contexts=%d",
		e.maxOrder, e.limit, size, model.Contexts())
	return e
}

// Predict tokenizes context and returns up to Limit ranked candidates for
// the next token. Candidates are ordered by score descending, ties broken
// by token in ascending byte order, so equal inputs always produce equal
// output. Matching is case-insensitive; counts tables are built lowercase
// and the context is folded before lookup.
//
// The model is keyed on the trailing window of at most MaxOrder-1 tokens.
// An unseen window backs off one token at a time until a populated order
// is found; the unigram table is the final fallback. Context that
// tokenizes to nothing yields an empty list, as does a model with no
// matching order at all. Neither is an error.
func (e *Engine) Predict(context string) []Prediction {
	tokens := Tokenize(strings.ToLower(context))
	if len(tokens) == 0 {
		return nil
	}

	k := len(tokens)
	if k > e.maxOrder-1 {
		k = e.maxOrder - 1
	}
	window := tokens[len(tokens)-k:]
	key := strings.Join(window, " ")

	if e.cache != nil {
		if ranked, ok := e.cache.Get(key); ok {
			return clonePredictions(ranked)
		}
	}

	var ranked []Prediction
	for ; k >= 0; k-- {
		freqs := e.model.Frequencies(tokens[len(tokens)-k:])
		if len(freqs) == 0 {
			continue
		}
		ranked = e.rank(freqs)
		break
	}

	if e.cache != nil {
		e.cache.Add(key, ranked)
	}
	return clonePredictions(ranked)
}

// MaxOrder reports the highest n-gram order the engine consults.
func (e *Engine) MaxOrder() int { return e.maxOrder }

// Limit reports the per-call prediction cap.
func (e *Engine) Limit() int { return e.limit }

func (e *Engine) rank(freqs map[string]int) []Prediction {
	ranked := make([]Prediction, 0, len(freqs))
	for token, score := range freqs {
		ranked = append(ranked, Prediction{Token: token, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Token < ranked[j].Token
	})
	if len(ranked) > e.limit {
		ranked = ranked[:e.limit]
	}
	return ranked
}

func clonePredictions(ranked []Prediction) []Prediction {
	if ranked == nil {
		return nil
	}
	return append([]Prediction(nil), ranked...)
}
