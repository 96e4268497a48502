package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultCapacity bounds the in-memory response cache. The key space is exact
// request URLs, so a few hundred entries cover any realistic session.
const DefaultCapacity = 256

// MemoryCache is a capacity-bounded in-memory cache with least-recently-used
// eviction. It is the default response cache backend for a pull session.
//
// All methods are safe for concurrent use.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List               // front = most recently used
	entries  map[string]*list.Element // key -> element holding *memoryEntry
}

type memoryEntry struct {
	key       string
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an in-memory LRU cache holding at most capacity
// entries. A capacity <= 0 falls back to DefaultCapacity.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get retrieves a value and marks it most recently used.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.remove(el)
		return nil, false, nil
	}
	c.order.MoveToFront(el)
	return entry.data, true, nil
}

// Set stores a value, evicting the least recently used entry when the cache
// is at capacity.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &memoryEntry{key: key, data: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	if el, ok := c.entries[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[key] = c.order.PushFront(entry)
	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
	return nil
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	return nil
}

// Close does nothing for the memory cache.
func (c *MemoryCache) Close() error { return nil }

// Len returns the number of entries currently held.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// remove must be called with the mutex held.
func (c *MemoryCache) remove(el *list.Element) {
	if el == nil {
		return
	}
	entry := el.Value.(*memoryEntry)
	delete(c.entries, entry.key)
	c.order.Remove(el)
}

// Ensure MemoryCache implements Cache.
var _ Cache = (*MemoryCache)(nil)
