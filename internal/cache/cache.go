// package cache implements the bounded in-memory store for audio feature records
package cache

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 1000

// Stats holds cache statistics.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	HitRate   float64 `json:"hit_rate"`
}

// Bounded is a thread-safe LRU cache with a fixed capacity.
//
// Entries are only removed by eviction. Setting an existing key overwrites it and marks it recently used.
type Bounded[K comparable, V any] struct {
	store     *lru.Cache[K, V]
	maxSize   int
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a cache holding at most size entries.
func New[K comparable, V any](size int) (*Bounded[K, V], error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", size)
	}
	c := &Bounded[K, V]{maxSize: size}
	store, err := lru.NewWithEvict(size, func(K, V) { c.evictions.Add(1) })
	if err != nil {
		return nil, err
	}
	c.store = store
	return c, nil
}

// Get returns the last value set for key.
func (c *Bounded[K, V]) Get(key K) (V, bool) {
	v, ok := c.store.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set stores value under key, evicting the least recently used entry when full.
func (c *Bounded[K, V]) Set(key K, value V) {
	c.store.Add(key, value)
}

// Len returns the current number of entries.
func (c *Bounded[K, V]) Len() int {
	return c.store.Len()
}

// Stats returns cache statistics.
func (c *Bounded[K, V]) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	rate := 0.0
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		Size:      c.store.Len(),
		MaxSize:   c.maxSize,
		HitRate:   rate,
	}
}
