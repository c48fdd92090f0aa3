// Package tokenize splits committed text into normalized word tokens.
//
// A token is a maximal run of letters, digits, combining marks and
// apostrophes, lower-cased with a locale aware Folder and at least
// MinRunes long. Everything else separates tokens.
package tokenize

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinRunes is the shortest token kept by default.
const MinRunes = 2

const apostrophes = "'’"

// Tokenizer turns raw text into normalized words. It holds no per-call
// state and is safe for concurrent use.
type Tokenizer struct {
	folder   *Folder
	minRunes int
}

// New creates a tokenizer folding with the given locale.
func New(locale string) *Tokenizer {
	return NewWithFolder(NewFolder(locale), MinRunes)
}

// NewWithFolder creates a tokenizer from an existing folder.
func NewWithFolder(folder *Folder, minRunes int) *Tokenizer {
	if minRunes < 1 {
		minRunes = MinRunes
	}
	return &Tokenizer{folder: folder, minRunes: minRunes}
}

// Folder exposes the folder used for normalization.
func (t *Tokenizer) Folder() *Folder {
	return t.folder
}

// Tokens returns a lazy sequence of normalized words in text.
// Ranging over it again rescans text from the start.
func (t *Tokenizer) Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if isWordRune(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if tok, ok := t.normalize(text[start:i]); ok && !yield(tok) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			if tok, ok := t.normalize(text[start:]); ok {
				yield(tok)
			}
		}
	}
}

// Split collects Tokens into a slice.
func (t *Tokenizer) Split(text string) []string {
	var out []string
	for tok := range t.Tokens(text) {
		out = append(out, tok)
	}
	return out
}

// Normalize returns the first token of word, or "" when word has none.
func (t *Tokenizer) Normalize(word string) string {
	for tok := range t.Tokens(word) {
		return tok
	}
	return ""
}

// FoldPrefix normalizes a partially typed word. Unlike Normalize it keeps
// prefixes shorter than the minimum token length.
func (t *Tokenizer) FoldPrefix(partial string) string {
	return t.folder.Fold(strings.TrimSpace(partial))
}

func (t *Tokenizer) normalize(raw string) (string, bool) {
	tok := strings.Trim(t.folder.Fold(raw), apostrophes)
	if utf8.RuneCountInString(tok) < t.minRunes {
		return "", false
	}
	return tok, true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || strings.ContainsRune(apostrophes, r)
}

// EndsSentence reports whether text finishes with terminal punctuation,
// ignoring trailing spaces and closing quotes or brackets.
func EndsSentence(text string) bool {
	trimmed := strings.TrimRightFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`"')]}»”’`, r)
	})
	if trimmed == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	return strings.ContainsRune(".!?…", last)
}
