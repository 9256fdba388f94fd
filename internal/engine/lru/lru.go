// Package lru provides a generic bounded cache with access-order eviction.
package lru

import (
	"container/list"
	"iter"
	"sync"

	"go.trai.ch/timescope/internal/core/domain"
	"go.trai.ch/zerr"
)

type entry[K comparable, V any] struct {
	key   K
	value V
}

// Cache is a bounded map that evicts its least recently used entry once a
// Set pushes it over capacity. Expiry is left to callers.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	items   map[K]*list.Element
	onEvict func(K, V)
}

// New creates a cache holding at most maxSize entries.
func New[K comparable, V any](maxSize int) (*Cache[K, V], error) {
	if maxSize <= 0 {
		return nil, zerr.With(domain.ErrInvalidCacheSize, "max_size", maxSize)
	}
	return &Cache[K, V]{
		maxSize: maxSize,
		order:   list.New(),
		items:   make(map[K]*list.Element, maxSize),
	}, nil
}

// OnEvict registers fn to be called with entries dropped for capacity.
func (c *Cache[K, V]) OnEvict(fn func(K, V)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the value for key and marks it most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Peek returns the value for key without touching its recency.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*entry[K, V]).value, true
}

// Set stores value under key as the most recently used entry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()

	if el, ok := c.items[key]; ok {
		c.order.Remove(el)
	}
	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})

	var evicted *entry[K, V]
	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		evicted = oldest.Value.(*entry[K, V])
		delete(c.items, evicted.key)
	}
	onEvict := c.onEvict
	c.mu.Unlock()

	if evicted != nil && onEvict != nil {
		onEvict(evicted.key, evicted.value)
	}
}

// Has reports whether key is resident.
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Delete removes key and reports whether it was resident.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.items)
}

// Len returns the number of resident entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// All iterates entries most recently used first. It iterates a snapshot,
// so the callback may modify the cache.
func (c *Cache[K, V]) All() iter.Seq2[K, V] {
	c.mu.Lock()
	snapshot := make([]*entry[K, V], 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		snapshot = append(snapshot, el.Value.(*entry[K, V]))
	}
	c.mu.Unlock()

	return func(yield func(K, V) bool) {
		for _, e := range snapshot {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}
