// Package cache provides a bounded, thread-safe TTL cache. Call sites
// check-then-populate explicitly; there is no implicit memoization wrapper.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Defaults matching the two cache roles in the gateway.
const (
	SearchTTL     = 5 * time.Minute
	SearchMaxSize = 1000
	SchemaTTL     = time.Hour
	SchemaMaxSize = 100
)

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
	elem      *list.Element
}

// Cache is a fixed-capacity TTL cache with LRU eviction once full. Safe for
// concurrent use.
type Cache struct {
	ttl     time.Duration
	maxSize int

	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // front = most recently used
	now     func() time.Time
}

// New creates a cache holding at most maxSize entries, each live for ttl.
func New(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: map[string]*entry{},
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the live value for key, purging it when expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.removeLocked(e)
		return nil, false
	}
	c.order.MoveToFront(e.elem)
	return e.value, true
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(e.elem)
		return
	}

	for len(c.entries) >= c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest.Value.(*entry))
	}

	e := &entry{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	e.elem = c.order.PushFront(e)
	c.entries[key] = e
}

// Remove deletes key if present.
func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

// Purge removes every expired entry and returns the count removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			c.removeLocked(e)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}
