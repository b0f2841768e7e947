package templateconfig

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"rentledger/pkg/platform/circuit"
)

const cacheKey = "rentledger:template-config"

// RedisCache is a read-through cache for the resolved configuration. Cache
// failures degrade to store reads; they never fail a proposal. A circuit
// breaker skips Redis round-trips entirely while it is misbehaving so every
// resolve doesn't eat a connection timeout.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *circuit.Breaker
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		breaker: circuit.New("template-config-cache",
			circuit.WithFailureThreshold(3),
			circuit.WithSuccessThreshold(2)),
	}
}

func (c *RedisCache) Get(ctx context.Context) (*Config, bool) {
	if c.breaker.IsOpen() {
		// Probe with a trial call so the breaker can close again.
		if err := c.client.Ping(ctx).Err(); err != nil {
			c.breaker.RecordFailure()
			return nil, false
		}
		if usePrimary, _ := c.breaker.RecordSuccess(); !usePrimary {
			return nil, false
		}
	}

	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.breaker.RecordFailure()
		}
		return nil, false
	}
	c.breaker.RecordSuccess()

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, false
	}
	return &cfg, true
}

func (c *RedisCache) Set(ctx context.Context, cfg *Config) {
	if c.breaker.IsOpen() {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey, raw, c.ttl).Err(); err != nil {
		c.breaker.RecordFailure()
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	// Deletes run even with the breaker open: a stale entry surviving an
	// outage is worse than one extra failed call.
	_ = c.client.Del(ctx, cacheKey).Err()
}
