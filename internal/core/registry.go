package core

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Registry keeps one Controller per browser session. Least recently used
// sessions are evicted once the capacity is reached.
type Registry struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, *Controller]
	factory func() *Controller
}

func NewRegistry(size int, factory func() *Controller) (*Registry, error) {
	if size <= 0 {
		size = DefaultSessionCacheSize
	}
	cache, err := lru.New[string, *Controller](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	return &Registry{cache: cache, factory: factory}, nil
}

// Get returns the controller for sessionID, creating it on first use.
func (r *Registry) Get(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctrl, ok := r.cache.Get(sessionID); ok {
		return ctrl
	}
	ctrl := r.factory()
	r.cache.Add(sessionID, ctrl)
	return ctrl
}

// Remove drops the controller of a session, e.g. on sign-out.
func (r *Registry) Remove(sessionID string) {
	r.cache.Remove(sessionID)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.cache.Len()
}
