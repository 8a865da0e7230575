package cache

import (
	"sync"
	"time"
)

// node is a doubly linked list node holding one cache entry.
type node struct {
	key       string
	value     interface{}
	expiresAt time.Time
	prev      *node
	next      *node
}

func (n *node) expired(now time.Time) bool {
	return !n.expiresAt.IsZero() && now.After(n.expiresAt)
}

// LRU is a thread-safe LRU cache with optional per-entry TTL. Link records
// are cached only briefly so advisory click counts never go far stale.
type LRU struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[string]*node
	head     *node // most recently used
	tail     *node // least recently used
}

// NewLRU creates an LRU cache. A zero ttl disables expiry.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 1000
	}

	c := &LRU{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*node, capacity),
	}

	// Sentinel head and tail keep list surgery branch-free.
	c.head = &node{}
	c.tail = &node{}
	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get retrieves a live value and marks it as recently used. Expired entries
// are evicted on access and reported as a miss.
func (c *LRU) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if n.expired(time.Now()) {
		c.unlink(n)
		delete(c.entries, key)
		return nil, false
	}

	c.moveToFront(n)
	return n.value, true
}

// Set adds or replaces a key, stamping it with the cache's TTL.
func (c *LRU) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}

	if n, ok := c.entries[key]; ok {
		n.value = value
		n.expiresAt = expiresAt
		c.moveToFront(n)
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictTail()
	}

	n := &node{key: key, value: value, expiresAt: expiresAt}
	c.pushFront(n)
	c.entries[key] = n
}

// Delete removes a key, reporting whether it was present.
func (c *LRU) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(n)
	delete(c.entries, key)
	return true
}

// Len returns the number of entries, including any not yet expired-evicted.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRU) moveToFront(n *node) {
	c.unlink(n)
	c.pushFront(n)
}

func (c *LRU) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *LRU) pushFront(n *node) {
	first := c.head.next

	n.next = first
	n.prev = c.head

	c.head.next = n
	first.prev = n
}

func (c *LRU) evictTail() {
	lru := c.tail.prev
	if lru == c.head {
		return
	}
	c.unlink(lru)
	delete(c.entries, lru.key)
}
