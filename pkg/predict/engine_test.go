package predict

import (
	"reflect"
	"strings"
	"testing"

	"github.com/keylex/keylex/pkg/ngram"
)

const sampleCounts = `# toy corpus counts
the 120
cat 40
dog 25
the cat 5
the dog 3
the car 3
on the mat 7
`

func sampleEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	model, err := ngram.Read(strings.NewReader(sampleCounts), ngram.DefaultMaxOrder)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return FromModel(model, opts)
}

func tokensOf(preds []Prediction) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = p.Token
	}
	return out
}

func TestPredictRanksByFrequency(t *testing.T) {
	e := sampleEngine(t, Options{})

	got := e.Predict("the")
	want := []string{"cat", "car", "dog"}
	if !reflect.DeepEqual(tokensOf(got), want) {
		t.Errorf("Predict(%q) = %v, want tokens %v", "the", got, want)
	}
	if got[0].Score != 5 || got[1].Score != 3 || got[2].Score != 3 {
		t.Errorf("Predict(%q) scores = %v, want 5,3,3", "the", got)
	}
}

func TestPredictTieBreakIsByteOrder(t *testing.T) {
	e := sampleEngine(t, Options{})

	got := tokensOf(e.Predict("the"))
	// car and dog both have count 3; car sorts first.
	if len(got) != 3 || got[1] != "car" || got[2] != "dog" {
		t.Errorf("tie-break order = %v, want [cat car dog]", got)
	}
}

func TestPredictFoldsCase(t *testing.T) {
	e := sampleEngine(t, Options{})

	lower := e.Predict("the")
	upper := e.Predict("The")
	if !reflect.DeepEqual(lower, upper) {
		t.Errorf("Predict(%q) = %v, Predict(%q) = %v, want equal", "the", lower, "The", upper)
	}
}

func TestPredictUsesLongestContext(t *testing.T) {
	e := sampleEngine(t, Options{})

	// Only the trailing window matters: "sat on the" keys the trigram
	// table on "on the" and never consults the bigram order.
	got := tokensOf(e.Predict("sat on the"))
	if !reflect.DeepEqual(got, []string{"mat"}) {
		t.Errorf("Predict(%q) = %v, want [mat]", "sat on the", got)
	}
}

func TestPredictBacksOffToShorterContext(t *testing.T) {
	e := sampleEngine(t, Options{})

	// "cat the" has no trigram context, so the bigram order answers.
	got := tokensOf(e.Predict("cat the"))
	want := []string{"cat", "car", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Predict(%q) = %v, want %v", "cat the", got, want)
	}

	// "dog cat" misses both upper orders and lands on the unigrams.
	got = tokensOf(e.Predict("dog cat"))
	want = []string{"the", "cat", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Predict(%q) = %v, want %v", "dog cat", got, want)
	}
}

func TestPredictFallsBackToUnigrams(t *testing.T) {
	uniOnly := `the 120
cat 40
dog 25
`
	model, err := ngram.Read(strings.NewReader(uniOnly), ngram.DefaultMaxOrder)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	e := FromModel(model, Options{})

	got := tokensOf(e.Predict("totally unseen context"))
	want := []string{"the", "cat", "dog"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unigram fallback = %v, want %v", got, want)
	}
}

func TestPredictEmptyContext(t *testing.T) {
	e := sampleEngine(t, Options{})

	for _, context := range []string{"", "   ", "!?., --"} {
		if got := e.Predict(context); len(got) != 0 {
			t.Errorf("Predict(%q) = %v, want empty", context, got)
		}
	}
}

func TestPredictUnknownEverything(t *testing.T) {
	model, err := ngram.Read(strings.NewReader("the cat 5\n"), ngram.DefaultMaxOrder)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	e := FromModel(model, Options{})

	// Model has no unigrams, so even the final back-off stays empty.
	if got := e.Predict("zebra"); len(got) != 0 {
		t.Errorf("Predict(%q) = %v, want empty", "zebra", got)
	}
}

func TestPredictHonorsLimit(t *testing.T) {
	e := sampleEngine(t, Options{Limit: 2})

	got := tokensOf(e.Predict("the"))
	if !reflect.DeepEqual(got, []string{"cat", "car"}) {
		t.Errorf("limited predictions = %v, want [cat car]", got)
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	e := sampleEngine(t, Options{CacheSize: -1})

	first := e.Predict("the")
	for i := 0; i < 50; i++ {
		if got := e.Predict("the"); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: Predict diverged: %v vs %v", i, got, first)
		}
	}
}

func TestPredictCacheDoesNotChangeResults(t *testing.T) {
	cached := sampleEngine(t, Options{})
	uncached := sampleEngine(t, Options{CacheSize: -1})

	contexts := []string{"the", "on the", "sat on the", "zebra crossing", ""}
	for _, context := range contexts {
		// Second cached call hits the LRU.
		cached.Predict(context)
		got := cached.Predict(context)
		want := uncached.Predict(context)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Predict(%q): cached %v != uncached %v", context, got, want)
		}
	}
}

func TestPredictResultIsCallerOwned(t *testing.T) {
	e := sampleEngine(t, Options{})

	first := e.Predict("the")
	first[0].Token = "mangled"

	second := e.Predict("the")
	if second[0].Token != "cat" {
		t.Errorf("mutating a returned slice leaked into the cache: %v", second)
	}
}

func TestNewEngineMissingFile(t *testing.T) {
	if _, err := NewEngine("testdata/no-such-counts.txt", Options{}); err == nil {
		t.Error("NewEngine on a missing file should fail at construction")
	}
}

func TestFromModelDefaults(t *testing.T) {
	e := sampleEngine(t, Options{})
	if e.MaxOrder() != ngram.DefaultMaxOrder {
		t.Errorf("MaxOrder = %d, want %d", e.MaxOrder(), ngram.DefaultMaxOrder)
	}
	if e.Limit() != DefaultLimit {
		t.Errorf("Limit = %d, want %d", e.Limit(), DefaultLimit)
	}
}

func BenchmarkPredict(b *testing.B) {
	model, err := ngram.Read(strings.NewReader(sampleCounts), ngram.DefaultMaxOrder)
	if err != nil {
		b.Fatalf("Read: %v", err)
	}
	e := FromModel(model, Options{CacheSize: -1})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Predict("sat on the")
	}
}

func BenchmarkPredictCached(b *testing.B) {
	model, err := ngram.Read(strings.NewReader(sampleCounts), ngram.DefaultMaxOrder)
	if err != nil {
		b.Fatalf("Read: %v", err)
	}
	e := FromModel(model, Options{})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Predict("sat on the")
	}
}
