// Package cache provides a fixed-capacity key/value cache with
// insertion-order eviction.
package cache

import (
	"container/list"
	"sync"
)

// Cache maps string keys to values, holding at most Cap entries. When a
// new key would exceed capacity the oldest-inserted key is evicted.
// Re-setting an existing key replaces its value in place without changing
// its eviction position, and Get never reorders. A zero capacity disables
// the cache. Safe for concurrent use.
type Cache[V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = oldest
	items    map[string]*list.Element
}

type entry[V any] struct {
	key   string
	value V
}

// New returns a cache holding at most capacity entries. Negative
// capacities are treated as zero.
func New[V any](capacity int) *Cache[V] {
	if capacity < 0 {
		capacity = 0
	}
	return &Cache[V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the value stored under key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		return el.Value.(*entry[V]).value, true
	}
	var zero V
	return zero, false
}

// Set stores value under key, evicting the oldest entry when full.
func (c *Cache[V]) Set(key string, value V) {
	if c.capacity == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = value
		return
	}
	c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value})
	for c.order.Len() > c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[V]).key)
	}
}

// Len returns the number of stored entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cap returns the configured capacity.
func (c *Cache[V]) Cap() int { return c.capacity }

// Keys returns the stored keys from oldest to newest.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[V]).key)
	}
	return keys
}
