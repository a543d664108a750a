package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache persists the raw values of the last activated snapshot.
type Cache interface {
	Save(ctx context.Context, values map[string]string) error
	Load(ctx context.Context) (map[string]string, error)
}

// RedisCache stores activated values in a single Redis hash.
type RedisCache struct {
	Client *redis.Client
	Key    string
	TTL    time.Duration
}

// NewRedisCache connects with opts and verifies the connection.
func NewRedisCache(ctx context.Context, opts *redis.Options, key string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	if key == "" {
		key = "lockard:remote_config:active"
	}
	return &RedisCache{Client: client, Key: key, TTL: ttl}, nil
}

// Save replaces the stored hash with values.
func (c *RedisCache) Save(ctx context.Context, values map[string]string) error {
	fields := make(map[string]interface{}, len(values))
	for k, v := range values {
		fields[k] = v
	}
	_, err := c.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.Key)
		pipe.HSet(ctx, c.Key, fields)
		if c.TTL > 0 {
			pipe.Expire(ctx, c.Key, c.TTL)
		}
		return nil
	})
	return err
}

// Load returns the stored values, empty when nothing is cached.
func (c *RedisCache) Load(ctx context.Context) (map[string]string, error) {
	values, err := c.Client.HGetAll(ctx, c.Key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return values, err
}

// Close closes the underlying client.
func (c *RedisCache) Close() error {
	return c.Client.Close()
}
