// Package cache memoizes parsed policy sets keyed by their exact source
// text, so repeated decisions over the same policies skip the parser.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/authz-engine/policy-core/internal/policy"
)

// Stats contains cache counters since construction.
type Stats struct {
	Size    int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

// PolicyCache is an LRU over immutable parsed policy sets. A zero or
// negative capacity disables it: every Get misses and Put is a no-op.
// TTL is optional; zero means entries never expire.
type PolicyCache struct {
	capacity int
	ttl      time.Duration

	items map[string]*list.Element
	order *list.List
	mu    sync.Mutex

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	source    string
	set       *policy.Set
	expiresAt time.Time
}

// NewPolicyCache creates a parse cache holding up to capacity sets.
func NewPolicyCache(capacity int, ttl time.Duration) *PolicyCache {
	return &PolicyCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns the parsed set for the exact source text, if cached.
func (c *PolicyCache) Get(source string) (*policy.Set, bool) {
	if c.capacity <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[source]; ok {
		entry := elem.Value.(*cacheEntry)

		if c.ttl > 0 && time.Now().After(entry.expiresAt) {
			c.removeElement(elem)
			c.misses++
			return nil, false
		}

		c.order.MoveToFront(elem)
		c.hits++
		return entry.set, true
	}

	c.misses++
	return nil, false
}

// Put stores a parsed set under its source text. The set must not be
// mutated afterwards; all cache readers share it.
func (c *PolicyCache) Put(source string, set *policy.Set) {
	if c.capacity <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[source]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.set = set
		entry.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	for c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	entry := &cacheEntry{
		source: source,
		set:    set,
	}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	elem := c.order.PushFront(entry)
	c.items[source] = elem
}

// Clear removes all entries but keeps the counters.
func (c *PolicyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
}

// Stats returns the counters.
func (c *PolicyCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Size:    c.order.Len(),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}

func (c *PolicyCache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	delete(c.items, entry.source)
	c.order.Remove(elem)
}

func (c *PolicyCache) evictOldest() {
	if elem := c.order.Back(); elem != nil {
		c.removeElement(elem)
	}
}

// Cleanup removes expired entries and reports how many were dropped.
func (c *PolicyCache) Cleanup() int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := time.Now()

	var next *list.Element
	for elem := c.order.Back(); elem != nil; elem = next {
		next = elem.Prev()
		entry := elem.Value.(*cacheEntry)
		if now.After(entry.expiresAt) {
			c.removeElement(elem)
			removed++
		}
	}

	return removed
}
