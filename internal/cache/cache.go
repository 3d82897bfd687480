package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"activity-notes/internal/models"
)

const (
	MaxCacheSize = 150
	DefaultTTL   = time.Minute
)

type cacheEntry struct {
	key       string
	dashboard *models.Dashboard
	timestamp time.Time
}

// Cache holds rendered dashboards per user. Entries older than the TTL are
// treated as misses so the time-based reminder does not go stale.
//
// Every invalidation bumps the user's generation. A view loaded under an
// older generation is never stored, so a read racing a write cannot put the
// pre-write view back.
type Cache struct {
	mu          sync.Mutex
	items       map[string]*list.Element
	order       *list.List
	generations map[string]uint64
	maxSize     int
	ttl         time.Duration
	now         func() time.Time
}

func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = MaxCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		items:       make(map[string]*list.Element),
		order:       list.New(),
		generations: make(map[string]uint64),
		maxSize:     maxSize,
		ttl:         ttl,
		now:         time.Now,
	}
}

func key(userID string) string {
	return "dashboard:" + userID
}

func (c *Cache) Get(userID string) (*models.Dashboard, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key(userID)]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.timestamp) >= c.ttl {
		c.remove(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return entry.dashboard, true
}

// Generation returns the user's current invalidation count. Read it before
// loading the view that will be passed to Set.
func (c *Cache) Generation(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[userID]
}

// Set stores d unless the user was invalidated since gen was read. It reports
// whether the view was stored.
func (c *Cache) Set(userID string, gen uint64, d *models.Dashboard) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[userID] != gen {
		return false
	}

	k := key(userID)
	if elem, ok := c.items[k]; ok {
		c.order.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.dashboard = d
		entry.timestamp = c.now()
		return true
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}

	entry := &cacheEntry{
		key:       k,
		dashboard: d,
		timestamp: c.now(),
	}
	c.items[k] = c.order.PushFront(entry)
	return true
}

func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[userID]++
	if elem, ok := c.items[key(userID)]; ok {
		c.remove(elem)
	}
}

// MarkStale drops the user's cached dashboard.
func (c *Cache) MarkStale(_ context.Context, userID string) error {
	c.Invalidate(userID)
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) remove(elem *list.Element) {
	delete(c.items, elem.Value.(*cacheEntry).key)
	c.order.Remove(elem)
}
