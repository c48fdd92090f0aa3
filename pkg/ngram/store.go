// Package ngram is the association store: bigram, trigram and unigram
// frequency counters with last-used timestamps.
//
// The store is explicitly constructed and owned by the engine. Every
// reinforcement is a single read-modify-write under the write lock, so
// concurrent readers observe an entry either before or after an update.
package ngram

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/nextword/internal/logger"
)

// Table identifies one of the persisted tables.
type Table int

const (
	Bigrams Table = iota
	Trigrams
	Unigrams

	// NumTables is the number of persisted tables.
	NumTables = 3
)

// Tables lists every table in flush order.
var Tables = []Table{Bigrams, Trigrams, Unigrams}

func (t Table) String() string {
	switch t {
	case Bigrams:
		return "bigrams"
	case Trigrams:
		return "trigrams"
	case Unigrams:
		return "unigrams"
	default:
		return "unknown"
	}
}

// Key is the stable persistence key of the table.
func (t Table) Key() string {
	return "ngram/" + t.String()
}

// entry is one counter. Last is Unix milliseconds so snapshots round-trip exactly.
type entry struct {
	Freq uint32 `msgpack:"f"`
	Last int64  `msgpack:"t"`
}

type pair struct {
	first, second string
}

// Candidate is a ranked lookup result. N is the order of the table it came
// from: 1 for unigrams, 2 for bigrams, 3 for trigrams.
type Candidate struct {
	Word      string
	Frequency uint32
	LastUsed  time.Time
	N         int
}

// Stats holds table sizes for diagnostics.
type Stats struct {
	Bigrams  int `msgpack:"bigrams" json:"bigrams"`
	Trigrams int `msgpack:"trigrams" json:"trigrams"`
	Unigrams int `msgpack:"unigrams" json:"unigrams"`
}

// Store holds the association tables.
type Store struct {
	mu       sync.RWMutex
	bigrams  map[string]map[string]entry
	trigrams map[pair]map[string]entry
	unigrams map[string]entry
	// prefix index over unigrams for mid-word lookups
	unigramIndex *patricia.Trie

	versions   [NumTables]uint64
	generation atomic.Uint64
	now        func() time.Time
	log        *log.Logger
}

// NewStore creates an empty store using the wall clock.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates an empty store reading time from now.
func NewStoreWithClock(now func() time.Time) *Store {
	s := &Store{
		now: now,
		log: logger.New("ngram"),
	}
	s.reset()
	return s
}

// SetLogger replaces the store's logger.
func (s *Store) SetLogger(l *log.Logger) {
	if l != nil {
		s.log = l
	}
}

func (s *Store) reset() {
	s.bigrams = make(map[string]map[string]entry)
	s.trigrams = make(map[pair]map[string]entry)
	s.unigrams = make(map[string]entry)
	s.unigramIndex = patricia.NewTrie()
}

// touch records a mutation of table t. Caller holds the write lock.
func (s *Store) touch(t Table) {
	s.versions[t]++
	s.generation.Add(1)
}

func (s *Store) stamp() int64 {
	return s.now().UnixMilli()
}

func bump(m map[string]entry, word string, now int64) {
	e := m[word]
	e.Freq++
	e.Last = now
	m[word] = e
}

// ReinforceBigram counts one occurrence of w2 following w1.
func (s *Store) ReinforceBigram(w1, w2 string) {
	if w1 == "" || w2 == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.bigrams[w1]
	if !ok {
		next = make(map[string]entry)
		s.bigrams[w1] = next
	}
	bump(next, w2, s.stamp())
	s.touch(Bigrams)
}

// ReinforceTrigram counts one occurrence of w3 following the pair (w1, w2).
func (s *Store) ReinforceTrigram(w1, w2, w3 string) {
	if w1 == "" || w2 == "" || w3 == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pair{w1, w2}
	next, ok := s.trigrams[key]
	if !ok {
		next = make(map[string]entry)
		s.trigrams[key] = next
	}
	bump(next, w3, s.stamp())
	s.touch(Trigrams)
}

// ReinforceUnigram counts one use of word regardless of context.
func (s *Store) ReinforceUnigram(word string) {
	if word == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.unigrams[word]; !ok {
		s.unigramIndex.Insert(patricia.Prefix(word), struct{}{})
	}
	bump(s.unigrams, word, s.stamp())
	s.touch(Unigrams)
}

// Clear drops every association.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	for _, t := range Tables {
		s.touch(t)
	}
	s.log.Debug("Association store cleared")
}

// Stats counts distinct bigram pairs, trigram triples and unigram words.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	for _, next := range s.bigrams {
		st.Bigrams += len(next)
	}
	for _, next := range s.trigrams {
		st.Trigrams += len(next)
	}
	st.Unigrams = len(s.unigrams)
	return st
}

// Generation increases on every mutation of any table.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Version increases on every mutation of table t.
func (s *Store) Version(t Table) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[t]
}
