// Package cache provides small in-process caches with absolute expiry.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache is a bounded LRU cache whose entries expire at a fixed instant.
// LRUCache 实现支持过期时间和泛型的 LRU 缓存。
type LRUCache[K comparable, V any] struct {
	cache    map[K]*entry[K, V]
	order    *list.List
	capacity int
	now      func() time.Time
	mu       sync.Mutex
}

type entry[K comparable, V any] struct {
	expiresAt time.Time
	element   *list.Element
	key       K
	value     V
}

// NewLRUCache creates a cache holding at most capacity entries. A nil clock
// uses time.Now.
func NewLRUCache[K comparable, V any](capacity int, now func() time.Time) *LRUCache[K, V] {
	if capacity <= 0 {
		capacity = 16
	}
	if now == nil {
		now = time.Now
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		now:      now,
		cache:    make(map[K]*entry[K, V]),
		order:    list.New(),
	}
}

// Get retrieves a live value and marks it most recently used.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.cache[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		c.removeEntry(e)
		var zero V
		return zero, false
	}
	c.order.MoveToFront(e.element)
	return e.value, true
}

// SetUntil stores value until the given instant.
func (c *LRUCache[K, V]) SetUntil(key K, value V, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.cache) >= c.capacity {
		c.evictOldest()
	}

	e := &entry[K, V]{key: key, value: value, expiresAt: expiresAt}
	e.element = c.order.PushFront(e)
	c.cache[key] = e
}

// Remove drops key.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.cache[key]; ok {
		c.removeEntry(e)
		return true
	}
	return false
}

// Size returns the number of entries, expired ones included.
func (c *LRUCache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// evictOldest must be called with lock held.
func (c *LRUCache[K, V]) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	if e, ok := oldest.Value.(*entry[K, V]); ok {
		c.removeEntry(e)
	}
}

// removeEntry must be called with lock held.
func (c *LRUCache[K, V]) removeEntry(e *entry[K, V]) {
	c.order.Remove(e.element)
	delete(c.cache, e.key)
}
