package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"prayogai-rag/internal/vectorindex"
)

// RedisCache stores one hash per bot so a single DEL drops every cached query
// of that bot. The TTL applies to the whole hash and is refreshed on write.
type RedisCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisCache(client *redisv9.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, botID, query string) ([]vectorindex.Hit, bool, error) {
	raw, err := c.client.HGet(ctx, c.botKey(botID), queryKey(query)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get retrieval failed: %w", err)
	}

	var hits []vectorindex.Hit
	if err := json.Unmarshal([]byte(raw), &hits); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached retrieval failed: %w", err)
	}
	return hits, true, nil
}

func (c *RedisCache) Set(ctx context.Context, botID, query string, hits []vectorindex.Hit) error {
	payload, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("marshal retrieval cache failed: %w", err)
	}
	key := c.botKey(botID)
	_, err = c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.HSet(ctx, key, queryKey(query), payload)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set retrieval failed: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateBot(ctx context.Context, botID string) error {
	if err := c.client.Del(ctx, c.botKey(botID)).Err(); err != nil {
		return fmt.Errorf("redis delete retrieval failed: %w", err)
	}
	return nil
}

func (c *RedisCache) botKey(botID string) string {
	return fmt.Sprintf("rag:retrieval:%s", botID)
}
