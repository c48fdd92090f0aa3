// Package learn is the write path: it turns committed words and sentences into
// n-gram reinforcements and persists the store in the background.
package learn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bastiangx/nextword/internal/logger"
	"github.com/bastiangx/nextword/pkg/ngram"
	"github.com/bastiangx/nextword/pkg/session"
	"github.com/bastiangx/nextword/pkg/storage"
	"github.com/bastiangx/nextword/pkg/tokenize"
	"github.com/charmbracelet/log"
)

const (
	DefaultBigramFlushEvery  = 10
	DefaultTrigramFlushEvery = 50
)

// Options tunes learning and flush cadence.
type Options struct {
	// BulkSentenceLearning reinforces every n-gram of a committed sentence
	// on top of the per-word updates, counting those n-grams twice.
	BulkSentenceLearning bool
	BigramFlushEvery     int
	TrigramFlushEvery    int
}

func DefaultOptions() Options {
	return Options{
		BulkSentenceLearning: true,
		BigramFlushEvery:     DefaultBigramFlushEvery,
		TrigramFlushEvery:    DefaultTrigramFlushEvery,
	}
}

// Learner feeds the association store and keeps its persisted copy current.
type Learner struct {
	store *ngram.Store
	kv    storage.KV
	tok   *tokenize.Tokenizer
	opts  Options
	log   *log.Logger

	counterMu    sync.Mutex
	sinceBigram  int
	sinceTrigram int

	// flushMu serializes saves; flushed holds the table version last written
	flushMu sync.Mutex
	flushed [ngram.NumTables]uint64
	// unloaded marks tables whose persisted blob could not be read. They are
	// never saved over until a reload succeeds.
	unloaded [ngram.NumTables]bool

	pending  [ngram.NumTables]atomic.Bool
	requests chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool
}

// New starts a learner and its flush worker.
func New(store *ngram.Store, kv storage.KV, tok *tokenize.Tokenizer, opts Options) *Learner {
	if opts.BigramFlushEvery <= 0 {
		opts.BigramFlushEvery = DefaultBigramFlushEvery
	}
	if opts.TrigramFlushEvery <= 0 {
		opts.TrigramFlushEvery = DefaultTrigramFlushEvery
	}
	if tok == nil {
		tok = tokenize.New(tokenize.DefaultLocale)
	}
	l := &Learner{
		store:    store,
		kv:       kv,
		tok:      tok,
		opts:     opts,
		log:      logger.New("learn"),
		requests: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	l.wg.Add(1)
	go l.flushWorker()
	return l
}

// SetLogger replaces the learner's logger.
func (l *Learner) SetLogger(lg *log.Logger) {
	if lg != nil {
		l.log = lg
	}
}

// Load restores every table from the KV. Missing keys leave the table empty;
// corrupt blobs are logged and leave it empty too. A table that cannot be
// read starts empty and keeps its persisted blob until a later flush manages
// to read and merge it.
func (l *Learner) Load(ctx context.Context) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	for _, t := range ngram.Tables {
		data, err := l.kv.Load(ctx, t.Key())
		switch {
		case errors.Is(err, storage.ErrNotFound):
			l.log.Debugf("No persisted %s, starting empty", t)
		case err != nil:
			l.log.Warnf("Failed to load %s, starting empty: %v", t, err)
			l.unloaded[t] = true
		default:
			if err := l.store.Decode(t, data); err != nil {
				l.log.Warnf("Discarding %s: %v", t, err)
			}
		}
		l.flushed[t] = l.store.Version(t)
	}
	stats := l.store.Stats()
	l.log.Debugf("Loaded %d bigrams, %d trigrams, %d words", stats.Bigrams, stats.Trigrams, stats.Unigrams)
	return nil
}

// OnWordCommitted learns each token of raw against the running context and
// pushes it onto tr. It returns the number of tokens learned.
func (l *Learner) OnWordCommitted(raw string, tr *session.Tracker) int {
	n := 0
	for word := range l.tok.Tokens(raw) {
		l.store.ReinforceUnigram(word)
		if prev1 := tr.Previous(1); prev1 != "" {
			l.store.ReinforceBigram(prev1, word)
			if prev2 := tr.Previous(2); prev2 != "" {
				l.store.ReinforceTrigram(prev2, prev1, word)
			}
		}
		tr.Push(word)
		n++
	}
	if n > 0 {
		l.countWords(n)
	}
	return n
}

// OnSentenceCommitted reinforces the n-grams inside text when bulk learning is
// on, then flushes every table.
func (l *Learner) OnSentenceCommitted(text string) int {
	var words []string
	if l.opts.BulkSentenceLearning {
		words = l.tok.Split(text)
		for i, w := range words {
			l.store.ReinforceUnigram(w)
			if i >= 1 {
				l.store.ReinforceBigram(words[i-1], w)
			}
			if i >= 2 {
				l.store.ReinforceTrigram(words[i-2], words[i-1], w)
			}
		}
	}
	l.resetCounters()
	l.RequestFlush(ngram.Tables...)
	return len(words)
}

// OnBackspace drops the newest context word. Learned counts are kept.
func (l *Learner) OnBackspace(tr *session.Tracker) {
	tr.PopLast()
}

func (l *Learner) countWords(n int) {
	l.counterMu.Lock()
	l.sinceBigram += n
	l.sinceTrigram += n
	var tables []ngram.Table
	if l.sinceBigram >= l.opts.BigramFlushEvery {
		l.sinceBigram = 0
		tables = append(tables, ngram.Bigrams, ngram.Unigrams)
	}
	if l.sinceTrigram >= l.opts.TrigramFlushEvery {
		l.sinceTrigram = 0
		tables = append(tables, ngram.Trigrams)
	}
	l.counterMu.Unlock()

	if len(tables) > 0 {
		l.RequestFlush(tables...)
	}
}

func (l *Learner) resetCounters() {
	l.counterMu.Lock()
	l.sinceBigram, l.sinceTrigram = 0, 0
	l.counterMu.Unlock()
}

// RequestFlush marks tables for saving and wakes the worker without blocking.
// Requests made while a flush is queued are merged into it.
func (l *Learner) RequestFlush(tables ...ngram.Table) {
	if l.closed.Load() {
		return
	}
	for _, t := range tables {
		l.pending[t].Store(true)
	}
	select {
	case l.requests <- struct{}{}:
	default:
	}
}

func (l *Learner) flushWorker() {
	defer l.wg.Done()
	for {
		select {
		case <-l.requests:
			for _, t := range ngram.Tables {
				if l.pending[t].Swap(false) {
					l.flushTable(context.Background(), t)
				}
			}
		case <-l.done:
			return
		}
	}
}

// Flush synchronously saves every table changed since its last save.
func (l *Learner) Flush(ctx context.Context) error {
	var errs []error
	for _, t := range ngram.Tables {
		if err := l.flushTable(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// flushTable saves t if it changed. A failed save leaves it dirty so the next
// flush retries.
func (l *Learner) flushTable(ctx context.Context, t ngram.Table) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	if l.store.Version(t) == l.flushed[t] {
		return nil
	}
	if l.unloaded[t] {
		if err := l.reload(ctx, t); err != nil {
			l.log.Errorf("Not saving %s, persisted copy still unreadable: %v", t, err)
			return err
		}
	}
	data, version, err := l.store.Encode(t)
	if err != nil {
		l.log.Errorf("Failed to encode %s: %v", t, err)
		return err
	}
	if err := l.kv.Save(ctx, t.Key(), data); err != nil {
		l.log.Errorf("Failed to save %s: %v", t, err)
		return err
	}
	l.flushed[t] = version
	l.log.Debugf("Saved %s (%d bytes)", t, len(data))
	return nil
}

// reload retries reading a table that failed to load and folds its persisted
// counters into the live ones. Called with flushMu held.
func (l *Learner) reload(ctx context.Context, t ngram.Table) error {
	data, err := l.kv.Load(ctx, t.Key())
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	default:
		if err := l.store.Merge(t, data); err != nil {
			l.log.Warnf("Discarding %s: %v", t, err)
		} else {
			l.log.Infof("Recovered persisted %s", t)
		}
	}
	l.unloaded[t] = false
	return nil
}

// Dirty reports whether t has changes that are not yet persisted.
func (l *Learner) Dirty(t ngram.Table) bool {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()
	return l.store.Version(t) != l.flushed[t]
}

// Clear empties the store and deletes its persisted tables.
func (l *Learner) Clear(ctx context.Context) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.store.Clear()
	var errs []error
	for _, t := range ngram.Tables {
		l.pending[t].Store(false)
		if err := l.kv.Delete(ctx, t.Key()); err != nil {
			l.log.Errorf("Failed to delete %s: %v", t, err)
			errs = append(errs, err)
			continue
		}
		l.unloaded[t] = false
		l.flushed[t] = l.store.Version(t)
	}
	l.resetCounters()
	return errors.Join(errs...)
}

// Close stops the worker and performs a final synchronous flush.
func (l *Learner) Close(ctx context.Context) error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.Flush(ctx)
}
