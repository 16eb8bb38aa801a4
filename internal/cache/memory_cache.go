package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"prayogai-rag/internal/vectorindex"
)

type MemoryCache struct {
	items *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &MemoryCache{items: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, botID, query string) ([]vectorindex.Hit, bool, error) {
	v, ok := c.items.Get(memoryKey(botID, query))
	if !ok {
		return nil, false, nil
	}
	hits := v.([]vectorindex.Hit)
	out := make([]vectorindex.Hit, len(hits))
	copy(out, hits)
	return out, true, nil
}

func (c *MemoryCache) Set(_ context.Context, botID, query string, hits []vectorindex.Hit) error {
	stored := make([]vectorindex.Hit, len(hits))
	copy(stored, hits)
	c.items.SetDefault(memoryKey(botID, query), stored)
	return nil
}

func (c *MemoryCache) InvalidateBot(_ context.Context, botID string) error {
	prefix := botID + "|"
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
	return nil
}

func memoryKey(botID, query string) string {
	return botID + "|" + queryKey(query)
}
