//go:build integration

// Package containers starts throwaway backing services for integration tests.
package containers

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const redisImage = "redis:7-alpine"

// RedisContainer is a running Redis with a connected client.
type RedisContainer struct {
	URL    string
	Client *redis.Client

	container *tcredis.RedisContainer
}

var (
	sharedOnce  sync.Once
	sharedRedis *RedisContainer
	sharedErr   error
)

// SharedRedis returns one Redis container for the whole test binary. Ryuk
// removes it when the binary exits.
func SharedRedis(t *testing.T) *RedisContainer {
	t.Helper()
	sharedOnce.Do(func() {
		sharedRedis, sharedErr = startRedis(context.Background())
	})
	if sharedErr != nil {
		t.Fatalf("start redis container: %v", sharedErr)
	}
	return sharedRedis
}

func startRedis(ctx context.Context) (*RedisContainer, error) {
	c, err := tcredis.Run(ctx, redisImage)
	if err != nil {
		return nil, err
	}
	url, err := c.ConnectionString(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("connection string: %w", err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("parse %q: %w", url, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &RedisContainer{URL: url, Client: client, container: c}, nil
}

// FlushAll empties the database between tests.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
