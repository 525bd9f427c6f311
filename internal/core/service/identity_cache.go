package service

import (
	"sync"

	"github.com/fixmasters/master-app/internal/core/domain"
)

// IdentityCache is the shared holder for the /users/me record, read by every
// screen-level consumer. One well-known slot; all writes go through the
// bootstrap coordinator or the profile service.
type IdentityCache struct {
	mu sync.RWMutex
	me *domain.Identity
}

func NewIdentityCache() *IdentityCache {
	return &IdentityCache{}
}

func (c *IdentityCache) Get() (*domain.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.me == nil {
		return nil, false
	}
	clone := *c.me
	return &clone, true
}

func (c *IdentityCache) Set(me *domain.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	clone := *me
	c.me = &clone
}

func (c *IdentityCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.me = nil
}
