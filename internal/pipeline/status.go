package pipeline

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// StatusStore abstracts the Redis operations used for state tracking to make
// testing easier.
type StatusStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// RedisStatusStore is a concrete implementation backed by go-redis.
type RedisStatusStore struct {
	client *redis.Client
}

// NewRedisStatusStore constructs a Redis-backed status store.
func NewRedisStatusStore(client *redis.Client) *RedisStatusStore {
	return &RedisStatusStore{client: client}
}

// Set writes a value to Redis.
func (s *RedisStatusStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a tracked value from Redis.
func (s *RedisStatusStore) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}
