package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/seqstore/internal/resource"
)

// LRU implements BlockCache with least-recently-used eviction.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[Key]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   Key
	value []byte
}

// NewLRU creates an LRU cache holding at most capacity bytes.
// If rc is non-nil, cached bytes are also reserved against its memory limit.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[Key]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Get returns a cached block.
func (c *LRU) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true
	}
	c.misses.Add(1)
	return nil, false
}

// Set caches a block. Blocks larger than the capacity are not cached, and
// neither are blocks the controller refuses memory for.
func (c *LRU) Set(key Key, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		// Immutable blocks: an existing entry already holds the same bytes.
		c.evictList.MoveToFront(ent)
		return
	}

	n := int64(len(b))
	if n > c.capacity {
		return
	}
	for c.size+n > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}
	if err := c.rc.Reserve(n); err != nil {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: b})
	c.size += n
}

// Invalidate removes entries matching the predicate.
func (c *LRU) Invalidate(predicate func(key Key) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var drop []*list.Element
	for key, element := range c.items {
		if predicate(key) {
			drop = append(drop, element)
		}
	}
	for _, e := range drop {
		c.removeElement(e)
	}
}

// Purge removes every entry and returns reserved memory.
func (c *LRU) Purge() {
	c.Invalidate(func(Key) bool { return true })
}

func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	n := int64(len(kv.value))
	c.size -= n
	c.rc.Release(n)
}
