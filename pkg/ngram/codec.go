package ngram

import (
	"errors"
	"fmt"
	"math"

	"github.com/tchap/go-patricia/v2/patricia"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshotVersion is written into every blob; unknown versions are rejected.
const snapshotVersion = 1

// ErrCorrupt reports a persisted blob that could not be decoded.
var ErrCorrupt = errors.New("corrupt association snapshot")

type bigramSnapshot struct {
	Version int                         `msgpack:"v"`
	Table   map[string]map[string]entry `msgpack:"t"`
}

type trigramSnapshot struct {
	Version int                                    `msgpack:"v"`
	Table   map[string]map[string]map[string]entry `msgpack:"t"`
}

type unigramSnapshot struct {
	Version int              `msgpack:"v"`
	Table   map[string]entry `msgpack:"t"`
}

// Encode serializes table t. The returned version is the table version the
// snapshot reflects, so callers can tell whether later writes happened.
func (s *Store) Encode(t Table) ([]byte, uint64, error) {
	snap, version := s.copyTable(t)
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s: %w", t, err)
	}
	return data, version, nil
}

// copyTable deep-copies a table under the read lock so encoding happens
// without blocking writers.
func (s *Store) copyTable(t Table) (any, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch t {
	case Bigrams:
		table := make(map[string]map[string]entry, len(s.bigrams))
		for w1, next := range s.bigrams {
			table[w1] = copyEntries(next)
		}
		return bigramSnapshot{Version: snapshotVersion, Table: table}, s.versions[t]
	case Trigrams:
		table := make(map[string]map[string]map[string]entry)
		for key, next := range s.trigrams {
			inner, ok := table[key.first]
			if !ok {
				inner = make(map[string]map[string]entry)
				table[key.first] = inner
			}
			inner[key.second] = copyEntries(next)
		}
		return trigramSnapshot{Version: snapshotVersion, Table: table}, s.versions[t]
	default:
		return unigramSnapshot{Version: snapshotVersion, Table: copyEntries(s.unigrams)}, s.versions[Unigrams]
	}
}

func copyEntries(m map[string]entry) map[string]entry {
	out := make(map[string]entry, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Decode replaces table t with the snapshot in data. On any error the
// table is left empty and the error wraps ErrCorrupt.
func (s *Store) Decode(t Table, data []byte) error {
	if err := s.restore(t, data, false); err != nil {
		switch t {
		case Bigrams:
			s.restoreBigrams(nil, false)
		case Trigrams:
			s.restoreTrigrams(nil, false)
		case Unigrams:
			s.restoreUnigrams(nil, false)
		}
		return err
	}
	return nil
}

// Merge adds the counters in data to table t, keeping the newest last-used
// time per entry. On error the table is left untouched.
func (s *Store) Merge(t Table, data []byte) error {
	return s.restore(t, data, true)
}

func (s *Store) restore(t Table, data []byte, merge bool) error {
	var err error
	switch t {
	case Bigrams:
		var snap bigramSnapshot
		if err = decodeSnapshot(data, &snap, &snap.Version); err == nil {
			s.restoreBigrams(snap.Table, merge)
			return nil
		}
	case Trigrams:
		var snap trigramSnapshot
		if err = decodeSnapshot(data, &snap, &snap.Version); err == nil {
			s.restoreTrigrams(snap.Table, merge)
			return nil
		}
	case Unigrams:
		var snap unigramSnapshot
		if err = decodeSnapshot(data, &snap, &snap.Version); err == nil {
			s.restoreUnigrams(snap.Table, merge)
			return nil
		}
	default:
		err = fmt.Errorf("unknown table %d", int(t))
	}
	return fmt.Errorf("%w: %s: %v", ErrCorrupt, t, err)
}

func decodeSnapshot(data []byte, snap any, version *int) error {
	if len(data) == 0 {
		return errors.New("empty blob")
	}
	if err := msgpack.Unmarshal(data, snap); err != nil {
		return err
	}
	if *version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", *version)
	}
	return nil
}

// valid drops counters that can never be produced by reinforcement.
func valid(word string, e entry) bool {
	return word != "" && e.Freq > 0
}

// combine adds e to the counter under word, saturating the frequency.
func combine(m map[string]entry, word string, e entry) {
	cur, ok := m[word]
	if !ok {
		m[word] = e
		return
	}
	if sum := uint64(cur.Freq) + uint64(e.Freq); sum > math.MaxUint32 {
		cur.Freq = math.MaxUint32
	} else {
		cur.Freq = uint32(sum)
	}
	cur.Last = max(cur.Last, e.Last)
	m[word] = cur
}

func (s *Store) restoreBigrams(table map[string]map[string]entry, merge bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !merge {
		s.bigrams = make(map[string]map[string]entry, len(table))
	}
	for w1, next := range table {
		if w1 == "" {
			continue
		}
		kept := s.bigrams[w1]
		if kept == nil {
			kept = make(map[string]entry, len(next))
		}
		for w2, e := range next {
			if valid(w2, e) {
				combine(kept, w2, e)
			}
		}
		if len(kept) > 0 {
			s.bigrams[w1] = kept
		}
	}
	s.touch(Bigrams)
}

func (s *Store) restoreTrigrams(table map[string]map[string]map[string]entry, merge bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !merge {
		s.trigrams = make(map[pair]map[string]entry)
	}
	for w1, inner := range table {
		for w2, next := range inner {
			if w1 == "" || w2 == "" {
				continue
			}
			key := pair{w1, w2}
			kept := s.trigrams[key]
			if kept == nil {
				kept = make(map[string]entry, len(next))
			}
			for w3, e := range next {
				if valid(w3, e) {
					combine(kept, w3, e)
				}
			}
			if len(kept) > 0 {
				s.trigrams[key] = kept
			}
		}
	}
	s.touch(Trigrams)
}

func (s *Store) restoreUnigrams(table map[string]entry, merge bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !merge {
		s.unigrams = make(map[string]entry, len(table))
		s.unigramIndex = patricia.NewTrie()
	}
	for word, e := range table {
		if !valid(word, e) {
			continue
		}
		if _, ok := s.unigrams[word]; !ok {
			s.unigramIndex.Insert(patricia.Prefix(word), struct{}{})
		}
		combine(s.unigrams, word, e)
	}
	s.touch(Unigrams)
}
