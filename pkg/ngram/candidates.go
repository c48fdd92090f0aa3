package ngram

import (
	"sort"
	"strings"
	"time"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/nextword/internal/utils"
)

// sortCandidates orders by frequency, then most recent use, then word.
func sortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Frequency != c[j].Frequency {
			return c[i].Frequency > c[j].Frequency
		}
		if !c[i].LastUsed.Equal(c[j].LastUsed) {
			return c[i].LastUsed.After(c[j].LastUsed)
		}
		return c[i].Word < c[j].Word
	})
}

// collect converts next into ordered candidates whose word starts with prefix.
func collect(next map[string]entry, n int, prefix string, limit int) []Candidate {
	if len(next) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(next))
	for word, e := range next {
		if prefix != "" && !strings.HasPrefix(word, prefix) {
			continue
		}
		out = append(out, Candidate{
			Word:      word,
			Frequency: e.Freq,
			LastUsed:  time.UnixMilli(e.Last),
			N:         n,
		})
	}
	sortCandidates(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// BigramCandidates returns up to limit words seen after w1.
func (s *Store) BigramCandidates(w1 string, limit int) []Candidate {
	if limit <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.bigrams[w1], 2, "", limit)
}

// TrigramCandidates returns up to limit words seen after the pair (w1, w2).
func (s *Store) TrigramCandidates(w1, w2 string, limit int) []Candidate {
	if limit <= 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.trigrams[pair{w1, w2}], 3, "", limit)
}

// BigramsWithPrefix returns every word seen after w1 that starts with prefix.
func (s *Store) BigramsWithPrefix(w1, prefix string) []Candidate {
	if w1 == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.bigrams[w1], 2, prefix, 0)
}

// TrigramsWithPrefix returns every word seen after (w1, w2) that starts with prefix.
func (s *Store) TrigramsWithPrefix(w1, w2, prefix string) []Candidate {
	if w1 == "" || w2 == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collect(s.trigrams[pair{w1, w2}], 3, prefix, 0)
}

// SmartCandidates merges trigram continuations of (w1, w2) with the top
// limit-n bigram continuations of w2, where n trigrams were found. w1 may be empty,
// in which case only bigrams are used; an empty w2 yields nothing.
func (s *Store) SmartCandidates(w1, w2 string, limit int) []Candidate {
	if limit <= 0 || w2 == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Candidate
	if w1 != "" {
		out = collect(s.trigrams[pair{w1, w2}], 3, "", limit)
	}
	if len(out) >= limit {
		return out
	}

	filter := utils.NewSuggestionFilter()
	for _, c := range out {
		filter.ShouldInclude(c.Word)
	}
	// the backfill is sized before dedup, so duplicates leave slots empty
	for _, c := range collect(s.bigrams[w2], 2, "", limit-len(out)) {
		if filter.ShouldInclude(c.Word) {
			out = append(out, c)
		}
	}
	return out
}

// UnigramsWithPrefix returns every learned word starting with prefix,
// ordered like the other candidate lists.
func (s *Store) UnigramsWithPrefix(prefix string) []Candidate {
	if prefix == "" {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Candidate
	err := s.unigramIndex.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, _ patricia.Item) error {
		word := string(p)
		e, ok := s.unigrams[word]
		if !ok {
			return nil
		}
		out = append(out, Candidate{
			Word:      word,
			Frequency: e.Freq,
			LastUsed:  time.UnixMilli(e.Last),
			N:         1,
		})
		return nil
	})
	if err != nil {
		s.log.Errorf("Error visiting unigram index: %v", err)
		return nil
	}
	sortCandidates(out)
	return out
}
