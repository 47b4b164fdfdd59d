// Package lrucache provides a generic thread-safe cache with a soft size
// limit, used by the mesh cache (keyed by content hash, spec §3). Misses
// for the same key are coalesced through golang.org/x/sync/singleflight so two
// goroutines that hash the same content never run the (potentially
// device-uploading) create callback twice, while misses for distinct keys
// still proceed concurrently instead of serializing on the cache's mutex.
package lrucache

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache is a generic thread-safe LRU-ish cache with a soft limit. When the
// cache exceeds softLimit after an insertion, the oldest entries (by last
// access) are evicted down to 75% of the limit.
//
// Cache must not be copied after creation.
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*entry[V]
	softLimit int
	tick      int64
	misses    singleflight.Group
}

type entry[V any] struct {
	value V
	atime int64
}

// New creates a cache with the given soft limit. A softLimit of 0 means
// unlimited.
func New[K comparable, V any](softLimit int) *Cache[K, V] {
	return &Cache[K, V]{
		entries:   make(map[K]*entry[V]),
		softLimit: softLimit,
	}
}

// Get retrieves a value, reporting whether it was present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.tick++
	e.atime = c.tick
	return e.value, true
}

// GetOrCreate returns the cached value for key, creating it on a miss.
// Concurrent misses for the same key are coalesced into a single create
// call via c.misses; misses for distinct keys run create concurrently,
// since the cache mutex is never held across it.
func (c *Cache[K, V]) GetOrCreate(key K, create func() V) V {
	if v, ok := c.Get(key); ok {
		return v
	}

	v, _, _ := c.misses.Do(fmt.Sprint(key), func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		value := create()
		c.mu.Lock()
		c.tick++
		c.entries[key] = &entry[V]{value: value, atime: c.tick}
		c.evictIfNeeded()
		c.mu.Unlock()
		return value, nil
	})
	return v.(V)
}

// Set stores a value, evicting if the cache exceeds its soft limit.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	c.entries[key] = &entry[V]{value: value, atime: c.tick}
	c.evictIfNeeded()
}

// Delete removes key, reporting whether it was present.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		return true
	}
	return false
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*entry[V])
	c.tick = 0
}

// Len returns the number of entries currently cached.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictIfNeeded must be called with c.mu held.
func (c *Cache[K, V]) evictIfNeeded() {
	if c.softLimit <= 0 || len(c.entries) <= c.softLimit {
		return
	}
	target := c.softLimit * 3 / 4
	if target < 1 {
		target = 1
	}
	toEvict := len(c.entries) - target
	if toEvict <= 0 {
		return
	}

	type item struct {
		key   K
		atime int64
	}
	items := make([]item, 0, len(c.entries))
	for k, e := range c.entries {
		items = append(items, item{k, e.atime})
	}
	for i := 0; i < toEvict && i < len(items); i++ {
		minIdx := i
		for j := i + 1; j < len(items); j++ {
			if items[j].atime < items[minIdx].atime {
				minIdx = j
			}
		}
		items[i], items[minIdx] = items[minIdx], items[i]
		delete(c.entries, items[i].key)
	}
}
