package colorize

import "sync"

const cacheShards = 64

// ColorCache memoizes palette matches keyed by the raw 8-bit source color.
//
// Each entry holds the matched Lab: lightness from the source pixel, a/b from
// the winning palette entry. A cache belongs to one palette; sharing it across
// runs with different palettes returns stale matches.
//
// ColorCache is safe for concurrent use by multiple goroutines. Keys are
// spread over independently locked shards so Stage-1 workers rarely contend.
// Two workers that miss on the same key both compute and store the match;
// since the value is a pure function of the key, the second write is benign.
//
// # Example Usage
//
//	cache := colorize.NewColorCache()
//	p := colorize.NewPipeline(colorize.Options{Cache: cache})
//	// Every image colorized by p reuses the same matches.
type ColorCache struct {
	shards [cacheShards]cacheShard
}

type cacheShard struct {
	mu      sync.RWMutex
	entries map[uint32]Lab
}

// NewColorCache creates an empty cache ready for concurrent use.
func NewColorCache() *ColorCache {
	c := &ColorCache{}
	for i := range c.shards {
		c.shards[i].entries = make(map[uint32]Lab)
	}
	return c
}

func (c *ColorCache) shard(key uint32) *cacheShard {
	// Fibonacci hashing; the top 6 bits select one of 64 shards.
	return &c.shards[(key*0x9E3779B1)>>26]
}

// Get returns the cached match for p, if any.
func (c *ColorCache) Get(p Pixel) (Lab, bool) {
	key := p.key()
	s := c.shard(key)
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	return v, ok
}

// Put stores the match for p, replacing any existing entry.
func (c *ColorCache) Put(p Pixel, v Lab) {
	key := p.key()
	s := c.shard(key)
	s.mu.Lock()
	s.entries[key] = v
	s.mu.Unlock()
}

// Len returns the number of cached colors.
func (c *ColorCache) Len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Clear removes all entries.
func (c *ColorCache) Clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.entries = make(map[uint32]Lab)
		s.mu.Unlock()
	}
}
