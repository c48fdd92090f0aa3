package predict

import (
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bastiangx/nextword/internal/logger"
	"github.com/bastiangx/nextword/pkg/ngram"
	"github.com/bastiangx/nextword/pkg/session"
	"github.com/bastiangx/nextword/pkg/tokenize"
)

// staticDict returns its words in order, ignoring the prefix, so the ranker's
// own prefix filter is exercised.
type staticDict []string

func (d staticDict) Lookup(_ string, limit int) []string {
	if limit > 0 && len(d) > limit {
		return d[:limit]
	}
	return d
}

func newStore() *ngram.Store {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return ngram.NewStoreWithClock(func() time.Time {
		t0 = t0.Add(time.Millisecond)
		return t0
	})
}

func newRanker(store *ngram.Store, dict Dictionary) *Ranker {
	r := NewRanker(store, dict, tokenize.New("tr"), DefaultOptions())
	r.SetLogger(logger.Discard("predict"))
	return r
}

func tracker(words ...string) *session.Tracker {
	tr := session.NewTracker(session.DefaultCapacity)
	for _, w := range words {
		tr.Push(w)
	}
	return tr
}

func TestTierScore(t *testing.T) {
	tests := []struct {
		description string
		tier        Tier
		freq        uint32
		expected    int
	}{
		{"Dictionary ignores frequency", TierDictionary, 7, 10},
		{"Unigram base", TierUnigram, 0, 50},
		{"Unigram per use", TierUnigram, 3, 80},
		{"Bigram per use", TierBigram, 2, 140},
		{"Trigram per use", TierTrigram, 1, 230},
		{"Unknown tier", Tier(9), 5, 0},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if got := TierScore(test.tier, test.freq); got != test.expected {
				t.Errorf("expected %d, got %d", test.expected, got)
			}
		})
	}
}

func TestColdStartUsesDictionary(t *testing.T) {
	r := newRanker(newStore(), staticDict{"mektup", "merhaba", "masa"})

	got := r.Predict("Me", tracker())
	if want := []string{"mektup", "merhaba"}; !slices.Equal(Words(got), want) {
		t.Fatalf("expected %v, got %v", want, Words(got))
	}
	for _, c := range got {
		if c.Score != 10 || !c.From(TierDictionary) || len(c.Sources) != 1 {
			t.Errorf("unexpected candidate %+v", c)
		}
	}
}

func TestEmptyPartialWithoutContext(t *testing.T) {
	r := newRanker(newStore(), staticDict{"merhaba"})
	if got := r.Predict("", tracker()); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := r.Predict("   ", nil); got != nil {
		t.Errorf("expected nil for blank partial, got %v", got)
	}
}

func TestLearnedContextOutranksDictionary(t *testing.T) {
	store := newStore()
	store.ReinforceBigram("merhaba", "nasılsın")
	store.ReinforceUnigram("nasılsın")
	r := newRanker(store, staticDict{"nasıl", "nasılsın", "nasa"})

	got := r.Predict("nas", tracker("merhaba"))
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %v", got)
	}
	if got[0].Word != "nasılsın" {
		t.Fatalf("expected learned successor first, got %v", Words(got))
	}
	// dictionary 10 + unigram 60 + bigram 120
	if got[0].Score != 190 {
		t.Errorf("expected summed score 190, got %d", got[0].Score)
	}
	for _, tier := range []Tier{TierDictionary, TierUnigram, TierBigram} {
		if !got[0].From(tier) {
			t.Errorf("expected a %s contribution in %+v", tier, got[0].Sources)
		}
	}
	if got[1].Word != "nasa" || got[2].Word != "nasıl" {
		t.Errorf("expected dictionary ties in word order, got %v", Words(got))
	}
}

func TestTrigramTier(t *testing.T) {
	store := newStore()
	store.ReinforceTrigram("iyi", "günler", "dilerim")
	r := newRanker(store, nil)

	got := r.Predict("di", tracker("iyi", "günler"))
	if len(got) != 1 || got[0].Word != "dilerim" || got[0].Score != 230 {
		t.Fatalf("unexpected candidates %+v", got)
	}
	if !got[0].From(TierTrigram) || got[0].From(TierBigram) {
		t.Errorf("unexpected sources %+v", got[0].Sources)
	}
}

func TestEveryCandidateMatchesPrefix(t *testing.T) {
	store := newStore()
	store.ReinforceBigram("çok", "güzel")
	store.ReinforceBigram("çok", "geç")
	store.ReinforceUnigram("gel")
	r := newRanker(store, staticDict{"gece", "ağaç", "gül", "güneş"})

	got := r.Predict("gü", tracker("çok"))
	if len(got) == 0 {
		t.Fatal("expected candidates")
	}
	for _, c := range got {
		if !strings.HasPrefix(c.Word, "gü") {
			t.Errorf("candidate %q does not start with prefix", c.Word)
		}
	}
}

func TestNextWordMode(t *testing.T) {
	store := newStore()
	store.ReinforceTrigram("bugün", "hava", "güzel")
	store.ReinforceBigram("hava", "güzel")
	store.ReinforceBigram("hava", "soğuk")
	store.ReinforceBigram("hava", "soğuk")
	r := newRanker(store, staticDict{"hava"})

	got := r.Predict("", tracker("bugün", "hava"))
	if want := []string{"güzel", "soğuk"}; !slices.Equal(Words(got), want) {
		t.Fatalf("expected %v, got %v", want, Words(got))
	}
	if !got[0].From(TierTrigram) || got[0].Score != 230 {
		t.Errorf("expected trigram candidate first, got %+v", got[0])
	}
	if !got[1].From(TierBigram) || got[1].Score != 140 {
		t.Errorf("expected bigram backfill, got %+v", got[1])
	}
}

func TestPredictionIsDeterministic(t *testing.T) {
	store := newStore()
	for _, w := range []string{"kalem", "kale", "kalp", "kaş"} {
		store.ReinforceUnigram(w)
	}
	dict := staticDict{"kalem", "kalıp", "kale"}

	first := newRanker(store, dict).Predict("ka", tracker())
	second := newRanker(store, dict).Predict("ka", tracker())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("rankings differ:\n%v\n%v", first, second)
	}
}

func TestLimit(t *testing.T) {
	r := newRanker(newStore(), staticDict{"aa", "ab", "ac", "ad"})
	if got := r.PredictN("a", nil, 2); !slices.Equal(Words(got), []string{"aa", "ab"}) {
		t.Errorf("unexpected %v", Words(got))
	}
	if got := r.PredictN("a", nil, 0); got != nil {
		t.Errorf("expected nil for zero limit, got %v", got)
	}
}

func TestCacheFollowsStoreGeneration(t *testing.T) {
	store := newStore()
	r := newRanker(store, staticDict{"sabah", "saat"})

	before := r.Predict("sa", tracker())
	if Words(before)[0] != "saat" {
		t.Fatalf("unexpected cold ranking %v", Words(before))
	}
	r.Predict("sa", tracker())
	if r.Stats()["cacheHits"] != 1 {
		t.Errorf("expected a cache hit, got %v", r.Stats())
	}

	store.ReinforceUnigram("sabah")
	after := r.Predict("sa", tracker())
	if Words(after)[0] != "sabah" {
		t.Errorf("expected learned word after mutation, got %v", Words(after))
	}
}

func TestCachedResultsAreCopies(t *testing.T) {
	r := newRanker(newStore(), staticDict{"deniz", "dere"})
	got := r.Predict("de", nil)
	got[0].Word = "bozuk"
	if again := r.Predict("de", nil); again[0].Word != "deniz" {
		t.Errorf("cache was mutated through a returned slice: %v", Words(again))
	}
}

func TestCachedSourcesAreCopies(t *testing.T) {
	store := newStore()
	store.ReinforceBigram("merhaba", "dünya")
	r := newRanker(store, staticDict{"dünya"})
	ctx := tracker("merhaba")

	first := r.PredictN("dü", ctx, 5)
	if len(first) == 0 || len(first[0].Sources) == 0 {
		t.Fatalf("expected a scored candidate, got %+v", first)
	}
	want := first[0].Sources[0].Points
	first[0].Sources[0].Points = 9999

	second := r.PredictN("dü", ctx, 5)
	if got := second[0].Sources[0].Points; got != want {
		t.Errorf("cached contribution changed to %d, want %d", got, want)
	}
	second[0].Sources[0].Points = 9999
	if got := r.PredictN("dü", ctx, 5)[0].Sources[0].Points; got != want {
		t.Errorf("cached contribution changed to %d, want %d", got, want)
	}
}

func TestHotCacheEviction(t *testing.T) {
	hc := NewHotCache(2)
	hc.Put("a", 1, []Candidate{{Word: "a"}})
	hc.Put("b", 1, []Candidate{{Word: "b"}})
	hc.Get("a", 1)
	hc.Put("c", 1, []Candidate{{Word: "c"}})

	if _, ok := hc.Get("b", 1); ok {
		t.Error("expected least recently used entry to be evicted")
	}
	if _, ok := hc.Get("a", 1); !ok {
		t.Error("expected recently used entry to survive")
	}
	if _, ok := hc.Get("a", 2); ok {
		t.Error("expected stale generation to miss")
	}
}
