package dispatch

import (
	"context"
	"sync"
	"time"

	"identitypulse/internal/identity/dispatch/elastic"
)

// fakeBackend is a scripted Backend. When block is set every call waits for
// its context to end.
type fakeBackend struct {
	mu sync.Mutex

	catalog    []elastic.IndexInfo
	catalogErr error
	health     elastic.ClusterHealth
	healthErr  error
	result     elastic.SearchResult
	searchErr  error
	block      bool
	delay      time.Duration

	healthInFlight    int
	maxHealthInFlight int

	listCalls     int
	searchCalls   int
	healthCalls   int
	searchedIndex string
}

func (f *fakeBackend) ListIndices(ctx context.Context) ([]elastic.IndexInfo, error) {
	f.mu.Lock()
	f.listCalls++
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, &elastic.Error{Kind: elastic.KindTimeout, Op: "list_indices", Err: ctx.Err()}
	}
	return f.catalog, f.catalogErr
}

func (f *fakeBackend) ClusterHealth(ctx context.Context) (elastic.ClusterHealth, error) {
	f.mu.Lock()
	f.healthCalls++
	f.healthInFlight++
	f.maxHealthInFlight = max(f.maxHealthInFlight, f.healthInFlight)
	block, delay := f.block, f.delay
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.healthInFlight--
		f.mu.Unlock()
	}()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
		}
	}
	if block {
		<-ctx.Done()
		return elastic.ClusterHealth{}, &elastic.Error{Kind: elastic.KindTimeout, Op: "cluster_health", Err: ctx.Err()}
	}
	return f.health, f.healthErr
}

func (f *fakeBackend) Search(ctx context.Context, index string, _ any) (elastic.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls++
	f.searchedIndex = index
	block := f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, &elastic.Error{Kind: elastic.KindTimeout, Op: "search", Err: ctx.Err()}
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.result == nil {
		return elastic.NoHits{}, nil
	}
	return f.result, nil
}
