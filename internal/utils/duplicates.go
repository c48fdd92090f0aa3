package utils

// SuggestionFilter drops repeated words while merging ranked lists.
// Words are compared exactly, so callers pass already normalized words.
type SuggestionFilter struct {
	seenWords map[string]struct{}
}

// NewSuggestionFilter creates a filter that already considers exclude as seen.
func NewSuggestionFilter(exclude ...string) *SuggestionFilter {
	seenWords := make(map[string]struct{}, len(exclude)+8)
	for _, w := range exclude {
		seenWords[w] = struct{}{}
	}
	return &SuggestionFilter{seenWords: seenWords}
}

// ShouldInclude reports whether word is new, marking it seen.
func (f *SuggestionFilter) ShouldInclude(word string) bool {
	if _, ok := f.seenWords[word]; ok {
		return false
	}
	f.seenWords[word] = struct{}{}
	return true
}

// Seen reports whether word was already accepted or excluded.
func (f *SuggestionFilter) Seen(word string) bool {
	_, ok := f.seenWords[word]
	return ok
}
