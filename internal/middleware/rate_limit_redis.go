package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of Redis commands the limiter needs.
type RedisClient interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Get(ctx context.Context, key string) (string, error)
}

// RedisRateLimitStore shares counters between replicas through Redis.
type RedisRateLimitStore struct {
	client    RedisClient
	keyPrefix string
}

// NewRedisRateLimitStore creates a new Redis-based rate limit store.
func NewRedisRateLimitStore(client RedisClient, keyPrefix string) *RedisRateLimitStore {
	if keyPrefix == "" {
		keyPrefix = "useradmin:ratelimit:"
	}
	return &RedisRateLimitStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Increment increments the counter for the given key.
func (s *RedisRateLimitStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := s.keyPrefix + key

	count, err := s.client.Incr(ctx, fullKey)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	// Expiration is set on the first hit of the window
	if count == 1 {
		if expireErr := s.client.Expire(ctx, fullKey, window); expireErr != nil {
			return count, fmt.Errorf("failed to set expiration: %w", expireErr)
		}
	}

	return count, nil
}

// GetCount returns the current count for the given key.
func (s *RedisRateLimitStore) GetCount(ctx context.Context, key string) (int64, error) {
	result, err := s.client.Get(ctx, s.keyPrefix+key)
	if err != nil || result == "" {
		return 0, nil //nolint:nilerr // missing keys are reported as errors by redis
	}

	count, err := strconv.ParseInt(result, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return count, nil
}

// GetTTL returns the remaining TTL for the given key.
func (s *RedisRateLimitStore) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return s.client.TTL(ctx, s.keyPrefix+key)
}

// GoRedisClient adapts a go-redis client to RedisClient.
type GoRedisClient struct {
	client redis.Cmdable
}

// NewGoRedisClient wraps client.
func NewGoRedisClient(client redis.Cmdable) *GoRedisClient {
	return &GoRedisClient{client: client}
}

// Incr implements RedisClient.
func (g *GoRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return g.client.Incr(ctx, key).Result()
}

// Expire implements RedisClient.
func (g *GoRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return g.client.Expire(ctx, key, expiration).Err()
}

// TTL implements RedisClient.
func (g *GoRedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return g.client.TTL(ctx, key).Result()
}

// Get implements RedisClient. A missing key yields an empty string.
func (g *GoRedisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := g.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}
