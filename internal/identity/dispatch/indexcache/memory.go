// Package indexcache remembers which index discovery picked for an endpoint
// and country, so repeat searches go straight to the query phase.
package indexcache

import (
	"context"
	"sync"
	"time"

	"identitypulse/pkg/platform/sentinel"
)

type cachedIndex struct {
	index    string
	storedAt time.Time
}

// Memory is an in-process cache with TTL expiry.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]cachedIndex
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]cachedIndex),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns sentinel.ErrNotFound if key is absent or has expired.
func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if cached, ok := m.entries[key]; ok {
		if m.now().Sub(cached.storedAt) < m.ttl {
			return cached.index, nil
		}
	}
	return "", sentinel.ErrNotFound
}

// Set stores index under key. An empty index is ignored.
func (m *Memory) Set(_ context.Context, key, index string) error {
	if index == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cachedIndex{index: index, storedAt: m.now()}
	return nil
}

// Delete drops key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
