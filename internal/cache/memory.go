package cache

import (
	"container/list"
	"sync"

	"github.com/fastplayer/fastplayer/internal/envelope"
)

// pointSize is the in-memory cost of one envelope point.
const pointSize = 4

// MemoryStats summarizes a memory cache.
type MemoryStats struct {
	Capacity  int64
	Size      int64
	Entries   int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns the fraction of lookups that hit, 0 when there were none.
func (s MemoryStats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Memory is an in-process LRU cache of envelopes bounded by their total size
// in bytes.
type Memory struct {
	capacity int64
	size     int64

	// LRU implementation
	items    map[Key]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats MemoryStats
}

type memoryEntry struct {
	key  Key
	env  envelope.Envelope
	size int64
}

// NewMemory creates a memory cache holding up to capacity bytes of points.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[Key]*list.Element),
		eviction: list.New(),
	}
}

// Get returns the envelope for key and marks it most recently used.
func (c *Memory) Get(key Key) (envelope.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*memoryEntry).env, true
}

// Put stores env under key, evicting least recently used entries to make
// room. Envelopes larger than the whole cache are not stored.
func (c *Memory) Put(key Key, env envelope.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Entries are shared with callers; keep a private copy.
	env = append(envelope.Envelope{}, env...)
	size := int64(len(env)*pointSize) + 1

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry)
		c.size += size - entry.size
		entry.env, entry.size = env, size
	} else {
		if size > c.capacity {
			return
		}
		c.items[key] = c.eviction.PushFront(&memoryEntry{key: key, env: env, size: size})
		c.size += size
	}

	for c.size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}
}

// Delete removes key if present.
func (c *Memory) Delete(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries.
func (c *Memory) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[Key]*list.Element)
	c.eviction.Init()
	c.size = 0
}

// Stats returns cache statistics.
func (c *Memory) Stats() MemoryStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Capacity = c.capacity
	stats.Size = c.size
	stats.Entries = len(c.items)
	return stats
}

// evictOldest removes the least recently used item (must be called with lock held).
func (c *Memory) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

// removeElement removes an element from the cache (must be called with lock held).
func (c *Memory) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*memoryEntry)
	delete(c.items, entry.key)
	c.size -= entry.size
}
