package rbac

import (
	"sync"
	"time"
)

type cacheEntry struct {
	perms   map[string]struct{}
	expires time.Time
}

// Cache holds computed permission sets per user with a TTL. It is
// process-local; other processes see permission changes only after their
// own entries expire or are invalidated.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached set for userID if it has not expired.
func (c *Cache) Get(userID string) (map[string]struct{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[userID]
	if !ok || !entry.expires.After(c.now()) {
		return nil, false
	}
	return entry.perms, true
}

func (c *Cache) Set(userID string, perms map[string]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cacheEntry{perms: perms, expires: c.now().Add(c.ttl)}
}

// Invalidate drops one user's entry.
func (c *Cache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
