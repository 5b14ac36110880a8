package storage

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// slotCache keeps the decoded contents of recently read spilled slots. It
// never owns data: every entry can be dropped and reloaded from its file.
type slotCache[T Sample] struct {
	mu        sync.Mutex
	capacity  int
	items     map[int64]*list.Element
	evictList *list.List
	closed    bool

	hits   atomic.Int64
	misses atomic.Int64
}

type cacheEntry[T Sample] struct {
	slot int64
	data []T
}

func newSlotCache[T Sample](capacity int) *slotCache[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &slotCache[T]{
		capacity:  capacity,
		items:     make(map[int64]*list.Element),
		evictList: list.New(),
	}
}

func (c *slotCache[T]) enabled() bool { return c.capacity > 0 }

func (c *slotCache[T]) get(slot int64) ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[slot]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*cacheEntry[T]).data, true
	}
	c.misses.Add(1)
	return nil, false
}

// peek looks up a slot without touching recency or statistics.
func (c *slotCache[T]) peek(slot int64) ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[slot]; ok {
		return ent.Value.(*cacheEntry[T]).data, true
	}
	return nil, false
}

func (c *slotCache[T]) put(slot int64, data []T) {
	if !c.enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if ent, ok := c.items[slot]; ok {
		c.evictList.MoveToFront(ent)
		ent.Value.(*cacheEntry[T]).data = data
		return
	}

	for c.evictList.Len() >= c.capacity {
		c.removeElement(c.evictList.Back())
	}

	c.items[slot] = c.evictList.PushFront(&cacheEntry[T]{slot: slot, data: data})
}

// close purges the cache and makes every later put a no-op, so a load
// finishing after Dispose cannot pin slot memory.
func (c *slotCache[T]) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.items = make(map[int64]*list.Element)
	c.evictList.Init()
}

func (c *slotCache[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

func (c *slotCache[T]) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	delete(c.items, e.Value.(*cacheEntry[T]).slot)
}
