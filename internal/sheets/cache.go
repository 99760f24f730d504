package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Export is a retrieved CSV payload and when it was retrieved.
type Export struct {
	RawText   string    `json:"raw_text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache receives every successful export, keyed by document id. It is
// write-only: imports always go to the spreadsheet host, so a reconnect
// picks up edits made since the last one.
type Cache interface {
	Put(ctx context.Context, docID string, exp Export) error
}

const cacheKeyPrefix = "deskchat:sheet:"

// RedisCache keeps the latest export of each document in Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Put(ctx context.Context, docID string, exp Export) error {
	data, err := json.Marshal(exp)
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+docID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
