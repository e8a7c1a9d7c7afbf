package promo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const activeCacheKey = "promo:active"

// Cache stores the active promotion snapshot in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetActive loads the cached snapshot. It reports whether the key existed.
func (c *Cache) GetActive(ctx context.Context) ([]Promotion, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, activeCacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}
	var promos []Promotion
	if err := json.Unmarshal(data, &promos); err != nil {
		return nil, false, err
	}
	return promos, true, nil
}

// SetActive stores the snapshot with the configured TTL.
func (c *Cache) SetActive(ctx context.Context, promos []Promotion) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(promos)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, activeCacheKey, data, c.ttl).Err()
}

// Invalidate drops the snapshot after a promotion mutation.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, activeCacheKey).Err()
}
