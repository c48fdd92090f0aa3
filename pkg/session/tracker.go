// Package session keeps the bounded window of recently committed words for
// one active input session.
package session

const (
	MinCapacity     = 2
	MaxCapacity     = 5
	DefaultCapacity = 3
)

// Tracker is a FIFO window of normalized words, oldest first.
// It is owned by a single editing session and is not safe for concurrent use.
type Tracker struct {
	words    []string
	capacity int
}

// NewTracker creates a tracker; capacity is clamped to [MinCapacity, MaxCapacity].
func NewTracker(capacity int) *Tracker {
	capacity = max(MinCapacity, min(capacity, MaxCapacity))
	return &Tracker{
		words:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of words kept.
func (t *Tracker) Capacity() int {
	return t.capacity
}

// Push appends word, evicting the oldest word when full. Empty words are ignored.
func (t *Tracker) Push(word string) {
	if word == "" {
		return
	}
	if len(t.words) == t.capacity {
		copy(t.words, t.words[1:])
		t.words = t.words[:len(t.words)-1]
	}
	t.words = append(t.words, word)
}

// PopLast drops the most recently pushed word. No-op when empty.
func (t *Tracker) PopLast() {
	if len(t.words) == 0 {
		return
	}
	t.words = t.words[:len(t.words)-1]
}

// Clear empties the window, e.g. at a sentence boundary.
func (t *Tracker) Clear() {
	t.words = t.words[:0]
}

// Len returns the number of words held.
func (t *Tracker) Len() int {
	return len(t.words)
}

// Snapshot returns a copy of the window, oldest first.
func (t *Tracker) Snapshot() []string {
	out := make([]string, len(t.words))
	copy(out, t.words)
	return out
}

// Previous returns the word n positions back from the newest (1 = newest),
// or "" when the window is shorter than n.
func (t *Tracker) Previous(n int) string {
	if n < 1 || n > len(t.words) {
		return ""
	}
	return t.words[len(t.words)-n]
}
