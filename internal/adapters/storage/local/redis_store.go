package local

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var _ RedisClient = (*redis.Client)(nil)

// DefaultRedisTTL is how long an untouched browser item lives in Redis.
const DefaultRedisTTL = 30 * 24 * time.Hour

// RedisStore implements Store on Redis strings.
type RedisStore struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store keyed as "<prefix>:<browser>:<key>".
func NewRedisStore(client RedisClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "scolarite:local"
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(browserID, key string) string {
	return s.prefix + ":" + browserID + ":" + key
}

// Get returns the raw value of a browser's key.
func (s *RedisStore) Get(ctx context.Context, browserID, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(browserID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set writes a browser's key and refreshes its TTL.
func (s *RedisStore) Set(ctx context.Context, browserID, key, value string) error {
	return s.client.Set(ctx, s.key(browserID, key), value, s.ttl).Err()
}

// Delete removes a browser's key.
func (s *RedisStore) Delete(ctx context.Context, browserID, key string) error {
	return s.client.Del(ctx, s.key(browserID, key)).Err()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
