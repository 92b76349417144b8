package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cooldownPrefix = "cooldown:"

// Cooldown is a per-key timer stored as a redis key with a TTL.
type Cooldown struct {
	client *redis.Client
}

// NewCooldown returns a Cooldown backed by the cache's client.
func NewCooldown(c *RedisCache) *Cooldown {
	return &Cooldown{client: c.client}
}

// Acquire sets the key with SET NX EX. If the key already exists it reports the TTL left.
func (c *Cooldown) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, time.Duration, error) {
	k := cooldownPrefix + key
	ok, err := c.client.SetNX(ctx, k, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown acquire %s: %w", key, err)
	}
	if ok {
		return true, 0, nil
	}
	left, err := c.client.TTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("cooldown ttl %s: %w", key, err)
	}
	// -1 means no expiry and -2 a key that vanished between the two calls.
	if left < 0 {
		if left == -2 {
			return c.Acquire(ctx, key, ttl)
		}
		left = ttl
	}
	return false, left, nil
}

// Release ends the cooldown early.
func (c *Cooldown) Release(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cooldownPrefix+key).Err(); err != nil {
		return fmt.Errorf("cooldown release %s: %w", key, err)
	}
	return nil
}
