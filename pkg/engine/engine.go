// Package engine ties the tokenizer, store, ranker and learner into one
// session-oriented predictive-text engine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/nextword/internal/logger"
	"github.com/bastiangx/nextword/pkg/config"
	"github.com/bastiangx/nextword/pkg/dictionary"
	"github.com/bastiangx/nextword/pkg/learn"
	"github.com/bastiangx/nextword/pkg/ngram"
	"github.com/bastiangx/nextword/pkg/predict"
	"github.com/bastiangx/nextword/pkg/session"
	"github.com/bastiangx/nextword/pkg/storage"
	"github.com/bastiangx/nextword/pkg/tokenize"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("engine closed")

// Options wires an engine. Only KV is required.
type Options struct {
	Config     *config.Config
	KV         storage.KV
	Dictionary *dictionary.Dictionary
	// Now overrides the clock used for last-used timestamps and pruning
	Now    func() time.Time
	Logger *log.Logger
}

// Stats is a snapshot of engine state.
type Stats struct {
	Bigrams         int            `msgpack:"bigrams" json:"bigrams"`
	Trigrams        int            `msgpack:"trigrams" json:"trigrams"`
	Unigrams        int            `msgpack:"unigrams" json:"unigrams"`
	DictionaryWords int            `msgpack:"dictionary_words" json:"dictionary_words"`
	Context         []string       `msgpack:"context" json:"context"`
	Cache           map[string]int `msgpack:"cache" json:"cache"`
}

// Engine owns one input session. Session operations are serialized.
type Engine struct {
	mu      sync.Mutex
	cfg     *config.Config
	tok     *tokenize.Tokenizer
	store   *ngram.Store
	dict    *dictionary.Dictionary
	ranker  *predict.Ranker
	learner *learn.Learner
	tracker *session.Tracker
	kv      storage.KV
	log     *log.Logger
	closed  bool
}

// withFallbacks copies cfg and replaces values that would disable
// prediction or make maintenance prune everything.
func withFallbacks(cfg *config.Config) *config.Config {
	def := config.DefaultConfig()
	if cfg == nil {
		return def
	}
	c := *cfg
	if c.Predict.MaxSuggestions <= 0 {
		c.Predict.MaxSuggestions = predict.DefaultMaxSuggestions
	}
	if c.Maintenance.MaxAgeDays <= 0 {
		c.Maintenance.MaxAgeDays = def.Maintenance.MaxAgeDays
	}
	if c.Maintenance.MinFrequency < 0 {
		c.Maintenance.MinFrequency = def.Maintenance.MinFrequency
	}
	return &c
}

// New builds an engine and restores learned history from opts.KV.
// The engine takes ownership of the KV and closes it on Close.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.KV == nil {
		return nil, errors.New("engine: no storage backend")
	}
	cfg := withFallbacks(opts.Config)
	lg := opts.Logger
	if lg == nil {
		lg = logger.New("engine")
	}

	tok := tokenize.New(cfg.Predict.Locale)
	dict := opts.Dictionary
	if dict == nil {
		dict = dictionary.New(tok.Folder())
	}

	var store *ngram.Store
	if opts.Now != nil {
		store = ngram.NewStoreWithClock(opts.Now)
	} else {
		store = ngram.NewStore()
	}
	store.SetLogger(lg.WithPrefix("ngram"))

	ranker := predict.NewRanker(store, dict, tok, predict.Options{
		MaxSuggestions:  cfg.Predict.MaxSuggestions,
		DictionaryDepth: cfg.Predict.DictionaryDepth,
		CacheSize:       cfg.Predict.CacheSize,
	})
	ranker.SetLogger(lg.WithPrefix("predict"))

	learner := learn.New(store, opts.KV, tok, learn.Options{
		BulkSentenceLearning: cfg.Learn.BulkSentenceLearning,
		BigramFlushEvery:     cfg.Learn.BigramFlushEvery,
		TrigramFlushEvery:    cfg.Learn.TrigramFlushEvery,
	})
	learner.SetLogger(lg.WithPrefix("learn"))

	if err := learner.Load(ctx); err != nil {
		learner.Close(ctx)
		return nil, fmt.Errorf("load history: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		tok:     tok,
		store:   store,
		dict:    dict,
		ranker:  ranker,
		learner: learner,
		tracker: session.NewTracker(cfg.Predict.ContextSize),
		kv:      opts.KV,
		log:     lg,
	}
	stats := store.Stats()
	lg.Debugf("Engine ready: %d dictionary words, %d bigrams, %d trigrams, locale %s",
		dict.Len(), stats.Bigrams, stats.Trigrams, tok.Folder().Locale())
	return e, nil
}

// Predict returns up to predict.max_suggestions words for partial.
func (e *Engine) Predict(partial string) []string {
	return predict.Words(e.PredictCandidates(partial, 0))
}

// PredictCandidates returns scored candidates with their tier breakdown.
// A non-positive limit uses predict.max_suggestions.
func (e *Engine) PredictCandidates(partial string, limit int) []predict.Candidate {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	if limit <= 0 {
		limit = e.cfg.Predict.MaxSuggestions
	}
	return e.ranker.PredictN(partial, e.tracker, limit)
}

// CommitWord learns raw against the current context. Text ending a sentence
// also resets the context. It returns the number of words learned.
func (e *Engine) CommitWord(raw string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0
	}
	n := e.learner.OnWordCommitted(raw, e.tracker)
	if tokenize.EndsSentence(raw) {
		e.tracker.Clear()
	}
	return n
}

// CommitSentence learns every n-gram inside text, flushes and resets the context.
func (e *Engine) CommitSentence(text string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0
	}
	n := e.learner.OnSentenceCommitted(text)
	e.tracker.Clear()
	return n
}

// Backspace forgets the newest context word.
func (e *Engine) Backspace() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.learner.OnBackspace(e.tracker)
}

// Context returns the current context, oldest first.
func (e *Engine) Context() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Snapshot()
}

// ResetContext drops the context without touching learned history.
func (e *Engine) ResetContext() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.Clear()
}

// ClearHistory wipes every learned association and its persisted copy.
func (e *Engine) ClearHistory(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.tracker.Clear()
	err := e.learner.Clear(ctx)
	e.ranker.InvalidateCache()
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	e.log.Info("Learned history cleared")
	return nil
}

// RunMaintenance prunes entries used fewer than maintenance.min_frequency
// times and idle for longer than maxAgeDays. A non-positive maxAgeDays uses
// maintenance.max_age_days.
func (e *Engine) RunMaintenance(maxAgeDays int) ngram.PruneResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ngram.PruneResult{}
	}
	if maxAgeDays <= 0 {
		maxAgeDays = e.cfg.Maintenance.MaxAgeDays
	}
	res := e.store.Prune(uint32(e.cfg.Maintenance.MinFrequency), time.Duration(maxAgeDays)*24*time.Hour)
	if res.Total() > 0 {
		e.learner.RequestFlush(ngram.Tables...)
	}
	e.log.Debugf("Pruned %d bigrams, %d trigrams, %d words", res.Bigrams, res.Trigrams, res.Unigrams)
	return res
}

// Stats reports table sizes, the dictionary size and the current context.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.store.Stats()
	return Stats{
		Bigrams:         s.Bigrams,
		Trigrams:        s.Trigrams,
		Unigrams:        s.Unigrams,
		DictionaryWords: e.dict.Len(),
		Context:         e.tracker.Snapshot(),
		Cache:           e.ranker.Stats(),
	}
}

// Flush synchronously persists every dirty table.
func (e *Engine) Flush(ctx context.Context) error {
	return e.learner.Flush(ctx)
}

// Close flushes learned history and releases the storage backend.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	flushErr := e.learner.Close(ctx)
	if flushErr != nil {
		e.log.Errorf("Final flush failed: %v", flushErr)
	}
	return errors.Join(flushErr, e.kv.Close())
}
