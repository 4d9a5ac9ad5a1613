package dispatch

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// Endpoint is one search backend serving a country.
type Endpoint struct {
	Name        string
	CountryCode string
	BaseURL     string
	// IndexName pins the index, skipping discovery. Optional.
	IndexName string
}

// Status is an endpoint's last known availability.
type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusOnline      Status = "online"
	StatusOffline     Status = "offline"
	StatusMaintenance Status = "maintenance"
)

// EndpointStatus is the field group the health checker replaces as a unit.
type EndpointStatus struct {
	Status           Status
	LastResponseTime time.Duration
	LastCheckedAt    time.Time
	LastError        string
}

// EndpointSnapshot pairs an endpoint with its current status.
type EndpointSnapshot struct {
	Endpoint
	EndpointStatus
}

// HealthTable holds the current status of every endpoint. Each endpoint's
// status is a single atomic pointer, so writers never block readers and no
// lock spans endpoints.
type HealthTable struct {
	endpoints []Endpoint
	byCountry map[string]int
	statuses  []atomic.Pointer[EndpointStatus]
}

// NewHealthTable builds the table. Every status starts as unknown. At most one
// endpoint may serve a country.
func NewHealthTable(endpoints []Endpoint) (*HealthTable, error) {
	t := &HealthTable{
		endpoints: slices.Clone(endpoints),
		byCountry: make(map[string]int, len(endpoints)),
		statuses:  make([]atomic.Pointer[EndpointStatus], len(endpoints)),
	}
	names := make(map[string]struct{}, len(endpoints))
	for i, ep := range t.endpoints {
		if ep.Name == "" || ep.BaseURL == "" {
			return nil, fmt.Errorf("endpoint %d: name and base url are required", i)
		}
		if _, dup := names[ep.Name]; dup {
			return nil, fmt.Errorf("endpoint %s: duplicate name", ep.Name)
		}
		names[ep.Name] = struct{}{}

		code := strings.ToUpper(ep.CountryCode)
		if _, dup := t.byCountry[code]; dup {
			return nil, fmt.Errorf("endpoint %s: country %s already has an endpoint", ep.Name, code)
		}
		t.endpoints[i].CountryCode = code
		t.byCountry[code] = i
		t.statuses[i].Store(&EndpointStatus{Status: StatusUnknown})
	}
	return t, nil
}

// ForCountry returns the endpoint serving a country.
func (t *HealthTable) ForCountry(code string) (Endpoint, bool) {
	i, ok := t.byCountry[strings.ToUpper(code)]
	if !ok {
		return Endpoint{}, false
	}
	return t.endpoints[i], true
}

// Endpoints returns every configured endpoint.
func (t *HealthTable) Endpoints() []Endpoint {
	return slices.Clone(t.endpoints)
}

// Status returns the current status of the named endpoint.
func (t *HealthTable) Status(name string) (EndpointStatus, bool) {
	i := t.index(name)
	if i < 0 {
		return EndpointStatus{}, false
	}
	return *t.statuses[i].Load(), true
}

// Set replaces the status of the named endpoint.
func (t *HealthTable) Set(name string, s EndpointStatus) bool {
	i := t.index(name)
	if i < 0 {
		return false
	}
	t.statuses[i].Store(&s)
	return true
}

// Snapshot returns every endpoint with its status, in configuration order.
func (t *HealthTable) Snapshot() []EndpointSnapshot {
	out := make([]EndpointSnapshot, len(t.endpoints))
	for i, ep := range t.endpoints {
		out[i] = EndpointSnapshot{Endpoint: ep, EndpointStatus: *t.statuses[i].Load()}
	}
	return out
}

func (t *HealthTable) index(name string) int {
	return slices.IndexFunc(t.endpoints, func(ep Endpoint) bool { return ep.Name == name })
}
