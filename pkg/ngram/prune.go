package ngram

import (
	"time"

	"github.com/tchap/go-patricia/v2/patricia"
)

// PruneResult counts removed entries per table.
type PruneResult struct {
	Bigrams  int
	Trigrams int
	Unigrams int
}

// Total returns the number of removed entries.
func (r PruneResult) Total() int {
	return r.Bigrams + r.Trigrams + r.Unigrams
}

// Prune deletes entries whose frequency is below minFrequency and whose last
// use is older than maxAge. Both conditions must hold. Keys left without
// continuations are dropped too.
func (s *Store) Prune(minFrequency uint32, maxAge time.Duration) PruneResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge).UnixMilli()
	stale := func(e entry) bool {
		return e.Freq < minFrequency && e.Last < cutoff
	}

	var res PruneResult
	for w1, next := range s.bigrams {
		res.Bigrams += pruneMap(next, stale)
		if len(next) == 0 {
			delete(s.bigrams, w1)
		}
	}
	for key, next := range s.trigrams {
		res.Trigrams += pruneMap(next, stale)
		if len(next) == 0 {
			delete(s.trigrams, key)
		}
	}
	for word, e := range s.unigrams {
		if stale(e) {
			delete(s.unigrams, word)
			s.unigramIndex.Delete(patricia.Prefix(word))
			res.Unigrams++
		}
	}

	if res.Bigrams > 0 {
		s.touch(Bigrams)
	}
	if res.Trigrams > 0 {
		s.touch(Trigrams)
	}
	if res.Unigrams > 0 {
		s.touch(Unigrams)
	}
	s.log.Debugf("Pruned %d bigrams, %d trigrams, %d unigrams (min freq %d, max age %v)",
		res.Bigrams, res.Trigrams, res.Unigrams, minFrequency, maxAge)
	return res
}

func pruneMap(next map[string]entry, stale func(entry) bool) int {
	removed := 0
	for word, e := range next {
		if stale(e) {
			delete(next, word)
			removed++
		}
	}
	return removed
}
