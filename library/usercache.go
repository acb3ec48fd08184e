package library

import "sync"

// UsernameCache tracks the usernames of non-deleted users so login attempts
// for unknown names can be rejected without a storage query. It is owned by
// the user handler that gets it at construction: Setup refreshes it wholesale
// from storage, while create/delete/undo-delete keep it current
// incrementally.
type UsernameCache struct {
	mu    sync.RWMutex
	names map[string]struct{}
}

func NewUsernameCache() *UsernameCache {
	return &UsernameCache{names: make(map[string]struct{})}
}

// Reset replaces the cache contents with the given usernames.
func (c *UsernameCache) Reset(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = make(map[string]struct{}, len(names))
	for _, n := range names {
		c.names[n] = struct{}{}
	}
}

func (c *UsernameCache) Add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[name] = struct{}{}
}

func (c *UsernameCache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.names, name)
}

func (c *UsernameCache) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.names[name]
	return ok
}

func (c *UsernameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
