package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ajithvnr2001/edgelink/internal/models"
)

// ErrCacheMiss is returned when a slug has no live cache entry.
var ErrCacheMiss = errors.New("cache miss")

// LinkCache is the shared (L2) cache for link records, sitting between the
// in-process LRU and Postgres. Records are stored as JSON with a TTL small
// enough that click-count staleness stays within the accepted margin.
type LinkCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLinkCache creates a Redis-backed link record cache.
func NewLinkCache(client *redis.Client, ttl time.Duration) *LinkCache {
	if ttl == 0 {
		ttl = time.Minute
	}
	return &LinkCache{client: client, ttl: ttl}
}

func cacheKey(slug string) string {
	return "link:" + slug
}

// Get retrieves a cached link record, or ErrCacheMiss.
func (c *LinkCache) Get(ctx context.Context, slug string) (*models.LinkRecord, error) {
	data, err := c.client.Get(ctx, cacheKey(slug)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var record models.LinkRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Set stores a link record with the cache's TTL.
func (c *LinkCache) Set(ctx context.Context, record *models.LinkRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(record.Slug), data, c.ttl).Err()
}

// Delete invalidates a slug.
func (c *LinkCache) Delete(ctx context.Context, slug string) error {
	return c.client.Del(ctx, cacheKey(slug)).Err()
}
