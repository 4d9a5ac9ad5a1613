package indexcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"identitypulse/pkg/platform/sentinel"
)

// DefaultKeyPrefix namespaces cache keys in a shared Redis.
const DefaultKeyPrefix = "identitypulse:index:"

// Redis is a cache shared by every process pointed at the same Redis.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedis creates a Redis-backed cache. Entries expire after ttl.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: DefaultKeyPrefix}
}

// Get returns sentinel.ErrNotFound on a miss and wraps
// sentinel.ErrUnavailable when Redis cannot be reached.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return v, nil
}

// Set stores index under key. An empty index is ignored.
func (r *Redis) Set(ctx context.Context, key, index string) error {
	if index == "" {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+key, index, r.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

// Delete drops key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}
