package storage

import (
	"context"
	"sync"

	"slackagent/model"
)

// MemoryCache keeps histories in process memory.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]model.History
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]model.History)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (model.History, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	return h.Clone(), true, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, history model.History) error {
	stored := history.Clone()
	if stored == nil {
		stored = model.History{}
	}

	c.mu.Lock()
	c.items[key] = stored
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error { return nil }
