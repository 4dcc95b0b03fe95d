package cache

import (
	"container/list"
	"fmt"
	"sync"
	"time"
)

// Config bounds an LRU cache. At least one of Capacity and MaxWeight must be set.
type Config struct {
	// Capacity is the maximum number of entries, 0 for no limit.
	Capacity int
	// MaxWeight is the maximum summed weight of all entries, 0 for no limit.
	MaxWeight int
	// TTL expires entries this long after their last write, 0 to keep them.
	TTL time.Duration
}

type entry[K comparable, V any] struct {
	key     K
	value   V
	weight  int
	expires time.Time
}

// LRU is a thread-safe least-recently-used cache with optional weights and TTL.
type LRU[K comparable, V any] struct {
	mu     sync.Mutex
	cfg    Config
	ll     *list.List
	items  map[K]*list.Element
	weight int
	now    func() time.Time

	hits, misses int
}

// New creates a cache bounded by cfg.
func New[K comparable, V any](cfg Config) (*LRU[K, V], error) {
	if cfg.Capacity <= 0 && cfg.MaxWeight <= 0 {
		return nil, fmt.Errorf("cache needs a capacity or a max weight")
	}
	return &LRU[K, V]{
		cfg:   cfg,
		ll:    list.New(),
		items: make(map[K]*list.Element),
		now:   time.Now,
	}, nil
}

// Get returns the value for key and marks it recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := el.Value.(*entry[K, V])
	if c.cfg.TTL > 0 && c.now().After(e.expires) {
		c.remove(el)
		c.misses++
		return zero, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Put stores value under key with the given weight, evicting the least
// recently used entries until the cache is back within its bounds.
func (c *LRU[K, V]) Put(key K, value V, weight int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*entry[K, V])
		c.weight += weight - e.weight
		e.value, e.weight = value, weight
		e.expires = c.expiry()
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&entry[K, V]{key: key, value: value, weight: weight, expires: c.expiry()})
		c.items[key] = el
		c.weight += weight
	}

	for c.over() {
		c.remove(c.ll.Back())
	}
}

func (c *LRU[K, V]) expiry() time.Time {
	if c.cfg.TTL <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.cfg.TTL)
}

// over assumes the lock is held.
func (c *LRU[K, V]) over() bool {
	if c.ll.Len() == 0 {
		return false
	}
	return (c.cfg.Capacity > 0 && c.ll.Len() > c.cfg.Capacity) ||
		(c.cfg.MaxWeight > 0 && c.weight > c.cfg.MaxWeight)
}

func (c *LRU[K, V]) remove(el *list.Element) {
	c.ll.Remove(el)
	e := el.Value.(*entry[K, V])
	delete(c.items, e.key)
	c.weight -= e.weight
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Weight returns the summed weight of all entries.
func (c *LRU[K, V]) Weight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weight
}

// Stats returns the hit and miss counters.
func (c *LRU[K, V]) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
