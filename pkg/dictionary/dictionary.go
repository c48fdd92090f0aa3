// Package dictionary is the static, read-mostly word list the ranker falls
// back to. Words are kept in a patricia trie for prefix lookups.
package dictionary

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/bastiangx/nextword/pkg/tokenize"
)

// Dictionary maps normalized words to a popularity score.
type Dictionary struct {
	mu       sync.RWMutex
	trie     *patricia.Trie
	folder   *tokenize.Folder
	words    int
	maxScore int
}

type scored struct {
	word  string
	score int
}

// New creates an empty dictionary normalizing words with folder.
func New(folder *tokenize.Folder) *Dictionary {
	return &Dictionary{
		trie:   patricia.NewTrie(),
		folder: folder,
	}
}

// FromWords builds a dictionary from a list ordered most popular first.
func FromWords(folder *tokenize.Folder, words []string) *Dictionary {
	d := New(folder)
	for i, w := range words {
		d.Add(w, len(words)-i)
	}
	return d
}

// Add inserts word with score. A word added twice keeps its best score.
func (d *Dictionary) Add(word string, score int) {
	word = d.folder.Fold(word)
	if word == "" {
		return
	}
	if score < 1 {
		score = 1
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if item := d.trie.Get(patricia.Prefix(word)); item != nil {
		if item.(int) >= score {
			return
		}
		d.trie.Set(patricia.Prefix(word), score)
	} else {
		d.trie.Insert(patricia.Prefix(word), score)
		d.words++
	}
	if score > d.maxScore {
		d.maxScore = score
	}
}

// Lookup returns up to limit words starting with prefix, best score first
// and alphabetical among equal scores. prefix must already be normalized.
// A non-positive limit returns every match.
func (d *Dictionary) Lookup(prefix string, limit int) []string {
	if prefix == "" {
		return nil
	}
	d.mu.RLock()
	var matches []scored
	err := d.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		matches = append(matches, scored{word: string(p), score: item.(int)})
		return nil
	})
	d.mu.RUnlock()
	if err != nil {
		log.Errorf("Error visiting dictionary subtree: %v", err)
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].word < matches[j].word
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.word
	}
	return out
}

// Contains reports whether word is known.
func (d *Dictionary) Contains(word string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.trie.Get(patricia.Prefix(d.folder.Fold(word))) != nil
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.words
}

// Stats returns statistics about the loaded dictionary
func (d *Dictionary) Stats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return map[string]int{
		"totalWords": d.words,
		"maxScore":   d.maxScore,
	}
}
