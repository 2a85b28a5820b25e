// Package cache provides a small bounded cache for chain metadata that is
// expensive to re-fetch, such as block headers.
package cache

import (
	"container/list"
	"sync"
)

// DefaultCapacity bounds a cache when the caller passes no explicit size.
const DefaultCapacity = 100

// Cache is a bounded key-value cache that evicts the oldest inserted entry
// once capacity is exceeded. It is purely a performance aid: a miss means
// "fetch it live", never a failure.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // keys, oldest at front
	entries  map[K]*entry[K, V]

	hits   uint64
	misses uint64
}

type entry[K comparable, V any] struct {
	value V
	elem  *list.Element
}

// New creates a cache bounded to capacity entries. A non-positive capacity
// falls back to DefaultCapacity.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache[K, V]{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[K]*entry[K, V], capacity),
	}
}

// Get returns the cached value for key, if present.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Put stores value under key, evicting the oldest inserted entry when the
// cache is full. Re-putting an existing key updates the value in place
// without refreshing its age.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(K))
		}
	}

	elem := c.order.PushBack(key)
	c.entries[key] = &entry[K, V]{value: value, elem: elem}
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns cumulative hit and miss counts.
func (c *Cache[K, V]) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
