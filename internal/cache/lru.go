package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache keeps at most maxSize entries, dropping the least recently used
// first. Entries older than ttl read as absent.
type LRUCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	index   map[string]*list.Element
	order   *list.List // front is most recent
	now     func() time.Time
	replace func(old, next T) bool

	hits     uint64
	misses   uint64
	rejected uint64
}

type entry[T any] struct {
	key     string
	value   T
	expires time.Time
}

// Stats are cumulative counters. Rejected counts Set calls refused by the
// replace policy.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Rejected uint64
	Size     int
}

// Option configures an LRUCache.
type Option[T any] func(*LRUCache[T])

// WithReplacePolicy makes Set keep a live entry unless replace(old, next)
// reports true. Expired entries are always replaced.
func WithReplacePolicy[T any](replace func(old, next T) bool) Option[T] {
	return func(c *LRUCache[T]) { c.replace = replace }
}

// NewLRUCache creates a cache holding at most maxSize entries (minimum 1).
func NewLRUCache[T any](maxSize int, ttl time.Duration, opts ...Option[T]) *LRUCache[T] {
	c := &LRUCache[T]{
		maxSize: max(maxSize, 1),
		ttl:     ttl,
		index:   make(map[string]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(key)
	if !ok {
		c.misses++
		var zero T
		return zero, false
	}
	c.order.MoveToFront(c.index[key])
	c.hits++
	return e.value, true
}

func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	if e, ok := c.live(key); ok {
		if c.replace != nil && !c.replace(e.value, value) {
			c.rejected++
			return
		}
		e.value, e.expires = value, expires
		c.order.MoveToFront(c.index[key])
		return
	}

	c.index[key] = c.order.PushFront(&entry[T]{key: key, value: value, expires: expires})
	for c.order.Len() > c.maxSize {
		c.evict(c.order.Back())
	}
}

func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.index[key]; ok {
		c.evict(el)
	}
}

// CleanExpired drops expired entries and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*entry[T]).expires) {
			c.evict(el)
			n++
		}
		el = prev
	}
	return n
}

func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

func (c *LRUCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Rejected: c.rejected, Size: len(c.index)}
}

// live returns the unexpired entry for key, evicting it if it expired.
func (c *LRUCache[T]) live(key string) (*entry[T], bool) {
	el, ok := c.index[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry[T])
	if c.now().After(e.expires) {
		c.evict(el)
		return nil, false
	}
	return e, true
}

func (c *LRUCache[T]) evict(el *list.Element) {
	delete(c.index, el.Value.(*entry[T]).key)
	c.order.Remove(el)
}
