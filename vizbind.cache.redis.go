package vizbind

import (
	"context"
	"errors"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisResultCache shares rendered output between processes through Redis.
type RedisResultCache struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisResultCache.
type RedisOption func(*RedisResultCache)

// WithRedisTTL sets the expiration of cached results. 0 keeps them forever.
// Default: 5 minutes
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(c *RedisResultCache) {
		c.ttl = ttl
	}
}

// WithRedisPrefix sets the key prefix.
// Default: "vizbind:render:"
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisResultCache) {
		c.prefix = prefix
	}
}

// NewRedisResultCache connects to the Redis server at addr.
func NewRedisResultCache(addr, password string, db int, opts ...RedisOption) *RedisResultCache {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisResultCacheFromClient(client, opts...)
}

// NewRedisResultCacheFromClient wraps an existing client.
func NewRedisResultCacheFromClient(client *backend.Client, opts ...RedisOption) *RedisResultCache {
	c := &RedisResultCache{
		client: client,
		prefix: DefaultRedisResultKeyPrefix,
		ttl:    DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisResultCache) key(k string) string {
	return c.prefix + k
}

// Get returns the cached output for key.
func (c *RedisResultCache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, backend.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores value under key with the configured TTL.
func (c *RedisResultCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, c.key(key), value, c.ttl).Err()
}

// Ping checks the connection.
func (c *RedisResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *RedisResultCache) Close() error {
	return c.client.Close()
}
