package speech

import (
	"container/list"
	"sync"
	"time"
)

// Clock abstracts time.Now so TTL behavior is testable.
type Clock func() time.Time

type cacheEntry struct {
	key      string
	data     []byte
	storedAt time.Time
}

// AudioCache is a bounded TTL cache of synthesized audio keyed by the
// digest of (text, language, rate). Expiry is lazy: entries are only
// checked against the TTL on lookup. A hit refreshes recency; when the
// cache is full, storing a new key evicts the least recently used entry.
type AudioCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = least recently used
	maxSize int
	ttl     time.Duration
	now     Clock
}

// NewAudioCache returns a cache bounded at maxSize entries with the given TTL.
func NewAudioCache(maxSize int, ttl time.Duration) *AudioCache {
	return NewAudioCacheWithClock(maxSize, ttl, time.Now)
}

// NewAudioCacheWithClock is NewAudioCache with an injected clock.
func NewAudioCacheWithClock(maxSize int, ttl time.Duration, now Clock) *AudioCache {
	return &AudioCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached audio for key. An entry older than the TTL is
// removed and reported as a miss; a fresh entry moves to most recently used.
func (c *AudioCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.order.Remove(elem)
		delete(c.entries, key)
		return nil, false
	}

	c.order.MoveToBack(elem)
	return entry.data, true
}

// Set stores audio under key. An existing key is replaced in place with a
// fresh timestamp without triggering eviction; a new key evicts the least
// recently used entry when the cache is at capacity.
func (c *AudioCache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	} else if len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}

	elem := c.order.PushBack(&cacheEntry{key: key, data: data, storedAt: c.now()})
	c.entries[key] = elem
}

// Len returns the number of entries currently held, including any that are
// stale but not yet lazily expired.
func (c *AudioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry.
func (c *AudioCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
