package rewind

import (
	"container/list"
	"sync"
)

type (
	lruCache[T any] struct {
		cache   map[string]*list.Element
		lru     *list.List
		maxSize int
		mu      sync.Mutex
	}

	constructor[T any] func() T

	cacheEntry[T any] struct {
		value T
		key   string
	}
)

const DefaultCacheSize = 4096

func newLRUCache[T any](maxSize int) *lruCache[T] {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &lruCache[T]{
		cache:   map[string]*list.Element{},
		lru:     list.New(),
		maxSize: maxSize,
	}
}

// Get returns the cached value for key, constructing it if missing. Values
// pushed out of the cache to make room are returned so the caller can
// release them outside of the cache lock
func (c *lruCache[T]) Get(key string, cons constructor[T]) (T, []T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry[T]).value, nil
	}

	entry := &cacheEntry[T]{key: key, value: cons()}
	c.cache[key] = c.lru.PushFront(entry)

	var evicted []T
	for c.lru.Len() > c.maxSize {
		evicted = append(evicted, c.evictLast())
	}
	return entry.value, evicted
}

// Remove drops key from the cache, returning its value if it was present
func (c *lruCache[T]) Remove(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		var zero T
		return zero, false
	}
	c.lru.Remove(elem)
	delete(c.cache, key)
	return elem.Value.(*cacheEntry[T]).value, true
}

// Drain empties the cache, returning every value it held
func (c *lruCache[T]) Drain() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := make([]T, 0, c.lru.Len())
	for c.lru.Len() > 0 {
		res = append(res, c.evictLast())
	}
	return res
}

func (c *lruCache[_]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *lruCache[T]) evictLast() T {
	back := c.lru.Back()
	c.lru.Remove(back)
	backEntry := back.Value.(*cacheEntry[T])
	delete(c.cache, backEntry.key)
	return backEntry.value
}
