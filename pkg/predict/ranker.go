package predict

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/bastiangx/nextword/internal/logger"
	"github.com/bastiangx/nextword/pkg/session"
	"github.com/bastiangx/nextword/pkg/tokenize"
	"github.com/charmbracelet/log"
)

const (
	DefaultMaxSuggestions  = 5
	DefaultDictionaryDepth = 32
	DefaultCacheSize       = 256
)

// Options tunes a Ranker.
type Options struct {
	// MaxSuggestions is the default K when callers do not pass a limit
	MaxSuggestions int
	// DictionaryDepth caps how many dictionary words are scored per lookup
	DictionaryDepth int
	// CacheSize is the number of ranked results kept, 0 disables the cache
	CacheSize int
}

// DefaultOptions returns the stock ranker tuning.
func DefaultOptions() Options {
	return Options{
		MaxSuggestions:  DefaultMaxSuggestions,
		DictionaryDepth: DefaultDictionaryDepth,
		CacheSize:       DefaultCacheSize,
	}
}

// Ranker merges dictionary matches with learned associations.
type Ranker struct {
	history History
	dict    Dictionary
	tok     *tokenize.Tokenizer
	opts    Options
	cache   *HotCache
	log     *log.Logger
}

// NewRanker builds a ranker over history and dict. dict may be nil.
func NewRanker(history History, dict Dictionary, tok *tokenize.Tokenizer, opts Options) *Ranker {
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = DefaultMaxSuggestions
	}
	if opts.DictionaryDepth <= 0 {
		opts.DictionaryDepth = DefaultDictionaryDepth
	}
	if tok == nil {
		tok = tokenize.New(tokenize.DefaultLocale)
	}
	return &Ranker{
		history: history,
		dict:    dict,
		tok:     tok,
		opts:    opts,
		cache:   NewHotCache(opts.CacheSize),
		log:     logger.New("predict"),
	}
}

// SetLogger replaces the ranker's logger.
func (r *Ranker) SetLogger(l *log.Logger) {
	if l != nil {
		r.log = l
	}
}

// Predict ranks up to Options.MaxSuggestions candidates for partial given the
// words in ctx.
func (r *Ranker) Predict(partial string, ctx *session.Tracker) []Candidate {
	return r.PredictN(partial, ctx, r.opts.MaxSuggestions)
}

// PredictN ranks up to limit candidates.
//
// With an empty partial it predicts the next word from context alone and only
// learned successors are returned. Otherwise every candidate starts with the
// folded partial and carries the summed points of each tier that proposed it.
func (r *Ranker) PredictN(partial string, ctx *session.Tracker, limit int) []Candidate {
	if limit <= 0 {
		return nil
	}
	prefix := r.tok.FoldPrefix(partial)

	var prev1, prev2 string
	if ctx != nil {
		prev1, prev2 = ctx.Previous(1), ctx.Previous(2)
	}

	key := cacheKey(prev2, prev1, prefix, limit)
	gen := r.history.Generation()
	if out, ok := r.cache.Get(key, gen); ok {
		return out
	}

	var out []Candidate
	if prefix == "" {
		out = r.nextWord(prev2, prev1, limit)
	} else {
		out = r.complete(prefix, prev2, prev1, limit)
	}

	r.log.Debugf("Ranked %d candidates for %q after [%s %s]", len(out), prefix, prev2, prev1)
	r.cache.Put(key, gen, out)
	return out
}

func (r *Ranker) nextWord(prev2, prev1 string, limit int) []Candidate {
	if prev1 == "" {
		return nil
	}
	found := r.history.SmartCandidates(prev2, prev1, limit)
	if len(found) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(found))
	for _, c := range found {
		tier := tierForOrder(c.N)
		points := TierScore(tier, c.Frequency)
		out = append(out, Candidate{
			Word:    c.Word,
			Score:   points,
			Sources: []Contribution{{Tier: tier, Frequency: c.Frequency, Points: points}},
		})
	}
	return out
}

func (r *Ranker) complete(prefix, prev2, prev1 string, limit int) []Candidate {
	scores := make(map[string]*Candidate)
	add := func(word string, tier Tier, freq uint32) {
		if !strings.HasPrefix(word, prefix) {
			return
		}
		points := TierScore(tier, freq)
		c, ok := scores[word]
		if !ok {
			c = &Candidate{Word: word}
			scores[word] = c
		}
		c.Score += points
		c.Sources = append(c.Sources, Contribution{Tier: tier, Frequency: freq, Points: points})
	}

	if r.dict != nil {
		for _, w := range r.dict.Lookup(prefix, r.opts.DictionaryDepth) {
			add(w, TierDictionary, 0)
		}
	}
	for _, c := range r.history.UnigramsWithPrefix(prefix) {
		add(c.Word, TierUnigram, c.Frequency)
	}
	if prev1 != "" {
		for _, c := range r.history.BigramsWithPrefix(prev1, prefix) {
			add(c.Word, TierBigram, c.Frequency)
		}
		if prev2 != "" {
			for _, c := range r.history.TrigramsWithPrefix(prev2, prev1, prefix) {
				add(c.Word, TierTrigram, c.Frequency)
			}
		}
	}

	out := make([]Candidate, 0, len(scores))
	for _, c := range scores {
		out = append(out, *c)
	}
	slices.SortFunc(out, func(a, b Candidate) int {
		if a.Score != b.Score {
			return cmp.Compare(b.Score, a.Score)
		}
		return strings.Compare(a.Word, b.Word)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// InvalidateCache drops every cached ranking.
func (r *Ranker) InvalidateCache() {
	r.cache.Reset()
}

func (r *Ranker) Stats() map[string]int {
	return r.cache.Stats()
}

func cacheKey(prev2, prev1, prefix string, limit int) string {
	var b strings.Builder
	b.WriteString(prev2)
	b.WriteByte(0x1f)
	b.WriteString(prev1)
	b.WriteByte(0x1f)
	b.WriteString(prefix)
	b.WriteByte(0x1f)
	b.WriteString(strconv.Itoa(limit))
	return b.String()
}
