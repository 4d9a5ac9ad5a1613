package indexcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identitypulse/pkg/platform/sentinel"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemory(time.Minute)
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, "au-1:au")
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, c.Set(ctx, "au-1:au", "au-identity"))
	got, err := c.Get(ctx, "au-1:au")
	require.NoError(t, err)
	assert.Equal(t, "au-identity", got)

	now = now.Add(time.Minute)
	_, err = c.Get(ctx, "au-1:au")
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "expired at ttl")

	require.NoError(t, c.Set(ctx, "au-1:au", "au-identity-v2"))
	require.NoError(t, c.Delete(ctx, "au-1:au"))
	_, err = c.Get(ctx, "au-1:au")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestMemoryIgnoresEmptyIndex(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	require.NoError(t, c.Set(ctx, "k", ""))
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
