// Package predict ranks next-word and word-completion candidates by merging the
// static dictionary with the learned n-gram associations.
package predict

import "github.com/bastiangx/nextword/pkg/ngram"

// History is the read side of the learned association store.
type History interface {
	// UnigramsWithPrefix returns learned words starting with prefix
	UnigramsWithPrefix(prefix string) []ngram.Candidate
	// BigramsWithPrefix returns successors of w1 starting with prefix
	BigramsWithPrefix(w1, prefix string) []ngram.Candidate
	// TrigramsWithPrefix returns successors of (w1, w2) starting with prefix
	TrigramsWithPrefix(w1, w2, prefix string) []ngram.Candidate
	// SmartCandidates returns trigram successors backfilled with bigrams
	SmartCandidates(w1, w2 string, limit int) []ngram.Candidate
	// Generation changes whenever any table is mutated
	Generation() uint64
}

// Dictionary supplies static word completions.
type Dictionary interface {
	// Lookup returns up to limit words starting with prefix, best first
	Lookup(prefix string, limit int) []string
}
