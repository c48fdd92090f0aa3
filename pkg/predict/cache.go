package predict

import (
	"math"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

type cached struct {
	generation uint64
	results    []Candidate
}

// HotCache keeps recent ranking results keyed by context and prefix.
// Entries computed against an older store generation are treated as misses.
type HotCache struct {
	entries     map[string]cached
	accessTime  map[string]int64
	accessCount int64
	hits        int64
	misses      int64
	maxEntries  int
	mu          sync.Mutex
}

// NewHotCache returns a cache holding up to maxEntries results.
// A non-positive size disables caching.
func NewHotCache(maxEntries int) *HotCache {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &HotCache{
		entries:    make(map[string]cached, maxEntries),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

// Get returns a copy of the cached result for key if it was stored at generation.
func (hc *HotCache) Get(key string, generation uint64) ([]Candidate, bool) {
	if hc == nil || hc.maxEntries == 0 {
		return nil, false
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	e, ok := hc.entries[key]
	if !ok || e.generation != generation {
		hc.misses++
		return nil, false
	}
	hc.hits++
	hc.markAccessed(key)
	return cloneCandidates(e.results), true
}

// Put stores results for key at generation, evicting the least recently used entry when full.
func (hc *HotCache) Put(key string, generation uint64, results []Candidate) {
	if hc == nil || hc.maxEntries == 0 {
		return
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if _, exists := hc.entries[key]; !exists && len(hc.entries) >= hc.maxEntries {
		hc.evictLRU()
	}
	hc.entries[key] = cached{generation: generation, results: cloneCandidates(results)}
	hc.markAccessed(key)
}

// Reset drops every entry.
func (hc *HotCache) Reset() {
	if hc == nil {
		return
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()
	clear(hc.entries)
	clear(hc.accessTime)
}

func (hc *HotCache) Stats() map[string]int {
	if hc == nil {
		return map[string]int{}
	}
	hc.mu.Lock()
	defer hc.mu.Unlock()

	return map[string]int{
		"cacheEntries": len(hc.entries),
		"maxEntries":   hc.maxEntries,
		"cacheHits":    int(hc.hits),
		"cacheMisses":  int(hc.misses),
	}
}

func (hc *HotCache) markAccessed(key string) {
	hc.accessCount++
	hc.accessTime[key] = hc.accessCount
}

func (hc *HotCache) evictLRU() {
	var oldestKey string
	var oldestTime int64 = math.MaxInt64

	for key, t := range hc.accessTime {
		if t < oldestTime {
			oldestTime = t
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(hc.entries, oldestKey)
		delete(hc.accessTime, oldestKey)
		log.Debugf("Evicted '%s' from prediction cache", oldestKey)
	}
}

// cloneCandidates copies results down to their contribution slices.
func cloneCandidates(results []Candidate) []Candidate {
	out := slices.Clone(results)
	for i := range out {
		out[i].Sources = slices.Clone(out[i].Sources)
	}
	return out
}
