package tokenize

import (
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// DefaultLocale keeps normalization stable across devices regardless of the
// platform locale.
const DefaultLocale = "tr"

// Folder lower-cases text with the casing rules of one locale.
// A cases.Caser keeps internal state, so casers are pooled per Folder.
type Folder struct {
	tag  language.Tag
	pool sync.Pool
}

// NewFolder builds a Folder for a BCP 47 locale such as "tr" or "en-US".
// An empty locale selects DefaultLocale; an unparsable one falls back to
// language-neutral folding.
func NewFolder(locale string) *Folder {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		log.Warnf("Unknown locale %q (%v), folding without locale rules", locale, err)
		tag = language.Und
	}
	f := &Folder{tag: tag}
	f.pool.New = func() any {
		c := cases.Lower(f.tag)
		return &c
	}
	return f
}

// Locale returns the tag the folder was built with.
func (f *Folder) Locale() language.Tag {
	return f.tag
}

// Fold returns s lower-cased under the folder's locale and composed to NFC,
// so decomposed input from some keyboards folds to the same word.
func (f *Folder) Fold(s string) string {
	if s == "" {
		return s
	}
	c := f.pool.Get().(*cases.Caser)
	defer f.pool.Put(c)
	return norm.NFC.String(c.String(s))
}
