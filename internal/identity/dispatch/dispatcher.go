// Package dispatch routes identity queries to the search backend serving a
// country. A dispatch is two phases: find the index to search, then search
// it. Each phase has its own timeout and failures are never retried.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/dispatch/elastic"
	"identitypulse/internal/identity/metrics"
	"identitypulse/internal/identity/models"
	dErrors "identitypulse/pkg/domain-errors"
	"identitypulse/pkg/platform/sentinel"
)

const (
	DefaultDiscoveryTimeout = 5 * time.Second
	DefaultSearchTimeout    = 10 * time.Second
	DefaultHealthTimeout    = 5 * time.Second
)

// Backend is the subset of the search engine API the dispatcher needs.
type Backend interface {
	ListIndices(ctx context.Context) ([]elastic.IndexInfo, error)
	ClusterHealth(ctx context.Context) (elastic.ClusterHealth, error)
	Search(ctx context.Context, index string, body any) (elastic.SearchResult, error)
}

// IndexCache remembers discovered indices. Get returns sentinel.ErrNotFound
// on a miss.
type IndexCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, index string) error
	Delete(ctx context.Context, key string) error
}

// Config holds the per-phase timeouts.
type Config struct {
	DiscoveryTimeout time.Duration
	SearchTimeout    time.Duration
	HealthTimeout    time.Duration
}

// DefaultConfig returns the standard timeouts.
func DefaultConfig() Config {
	return Config{
		DiscoveryTimeout: DefaultDiscoveryTimeout,
		SearchTimeout:    DefaultSearchTimeout,
		HealthTimeout:    DefaultHealthTimeout,
	}
}

// IndexSource says where the searched index name came from.
type IndexSource string

const (
	IndexStatic     IndexSource = "static"
	IndexCached     IndexSource = "cache"
	IndexDiscovered IndexSource = "discovered"
	IndexFallback   IndexSource = "fallback"
)

// Outcome is a successful dispatch.
type Outcome struct {
	Endpoint    Endpoint
	Index       string
	IndexSource IndexSource
	Result      elastic.SearchResult
	Warnings    []string
	Phases      []Phase
}

// Candidates returns the ranked hits and the best relevance score. A NoHits
// result yields no candidates.
func (o *Outcome) Candidates() ([]models.Hit, float64) {
	switch r := o.Result.(type) {
	case elastic.Hits:
		return r.Items, r.MaxScore
	case elastic.NoHits:
		return nil, 0
	default:
		return nil, 0
	}
}

type Dispatcher struct {
	table         *HealthTable
	backends      map[string]Backend
	backendConfig elastic.Config
	cache         IndexCache
	config        Config
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithIndexCache(c IndexCache) Option {
	return func(d *Dispatcher) {
		d.cache = c
	}
}

func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		d.config = cfg
	}
}

// WithBackendConfig sets the transport settings used for endpoints that have
// no injected backend.
func WithBackendConfig(cfg elastic.Config) Option {
	return func(d *Dispatcher) {
		d.backendConfig = cfg
	}
}

// WithBackend injects the backend for a named endpoint.
func WithBackend(endpoint string, b Backend) Option {
	return func(d *Dispatcher) {
		d.backends[endpoint] = b
	}
}

// New creates a dispatcher over the endpoints in table. Endpoints without an
// injected backend get an HTTP client for their base URL.
func New(table *HealthTable, opts ...Option) (*Dispatcher, error) {
	if table == nil {
		return nil, errors.New("health table is required")
	}
	d := &Dispatcher{
		table:         table,
		backends:      make(map[string]Backend),
		backendConfig: elastic.DefaultConfig(),
		config:        DefaultConfig(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:        otel.Tracer("identitypulse/dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}

	for _, ep := range table.Endpoints() {
		if _, ok := d.backends[ep.Name]; ok {
			continue
		}
		c, err := elastic.New(ep.BaseURL, d.backendConfig, d.logger)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s: %w", ep.Name, err)
		}
		d.backends[ep.Name] = c
	}
	return d, nil
}

// Table returns the health table the dispatcher routes with.
func (d *Dispatcher) Table() *HealthTable {
	return d.table
}

// Dispatch resolves the endpoint and index for the profile's country and runs
// body against it.
func (d *Dispatcher) Dispatch(ctx context.Context, p *country.Profile, body any) (*Outcome, error) {
	tr := newTracker()

	ep, ok := d.table.ForCountry(p.Code())
	if !ok {
		_ = tr.to(PhaseFailed)
		return nil, dErrors.New(dErrors.CodeNoServerForCountry,
			fmt.Sprintf("no search server is configured for country %s", p.Code()))
	}
	backend := d.backends[ep.Name]

	out := &Outcome{Endpoint: ep}
	if st, ok := d.table.Status(ep.Name); ok && st.Status == StatusOffline {
		out.Warnings = append(out.Warnings, offlineWarning(ep.Name))
		d.logger.WarnContext(ctx, "querying endpoint last reported offline",
			"endpoint", ep.Name,
			"last_checked_at", st.LastCheckedAt,
		)
	}

	index, source, err := d.resolveIndex(ctx, tr, backend, ep, p)
	if err != nil {
		_ = tr.to(PhaseFailed)
		return nil, err
	}
	out.Index, out.IndexSource = index, source
	if source == IndexFallback {
		out.Warnings = append(out.Warnings, fallbackWarning(index))
	}

	if err := tr.to(PhaseQuerying); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dispatch state")
	}
	result, err := d.search(ctx, backend, ep, index, body)
	if err != nil {
		_ = tr.to(PhaseFailed)
		if source == IndexCached && !Canceled(err) {
			d.forgetIndex(ctx, ep, p.Code(), index)
		}
		return nil, err
	}
	if err := tr.to(PhaseScored); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dispatch state")
	}

	out.Result = result
	out.Phases = tr.history
	return out, nil
}

func (d *Dispatcher) resolveIndex(ctx context.Context, tr *tracker, backend Backend, ep Endpoint, p *country.Profile) (string, IndexSource, error) {
	if ep.IndexName != "" {
		return ep.IndexName, IndexStatic, nil
	}
	if name := p.IndexName(); name != "" {
		return name, IndexStatic, nil
	}

	key := cacheKey(ep, p.Code())
	if d.cache != nil {
		name, err := d.cache.Get(ctx, key)
		switch {
		case err == nil && name != "":
			d.metrics.IncrementIndexCache("hit")
			return name, IndexCached, nil
		case err == nil, errors.Is(err, sentinel.ErrNotFound):
			d.metrics.IncrementIndexCache("miss")
		default:
			d.metrics.IncrementIndexCache("error")
			d.logger.WarnContext(ctx, "index cache lookup failed", "key", key, "error", err)
		}
	}

	if err := tr.to(PhaseDiscovering); err != nil {
		return "", "", dErrors.Wrap(err, dErrors.CodeInternal, "dispatch state")
	}
	sel, err := d.discover(ctx, backend, ep, p.Code())
	if err != nil {
		return "", "", err
	}

	if sel.Fallback {
		d.logger.WarnContext(ctx, "no identity index matched, using fallback",
			"endpoint", ep.Name,
			"country", p.Code(),
			"index", sel.Index,
			"docs", sel.Docs,
		)
		return sel.Index, IndexFallback, nil
	}

	d.logger.InfoContext(ctx, "identity index discovered",
		"endpoint", ep.Name,
		"country", p.Code(),
		"index", sel.Index,
		"docs", sel.Docs,
	)
	if d.cache != nil {
		if err := d.cache.Set(ctx, key, sel.Index); err != nil {
			d.logger.WarnContext(ctx, "index cache store failed", "key", key, "error", err)
		}
	}
	return sel.Index, IndexDiscovered, nil
}

func (d *Dispatcher) discover(ctx context.Context, backend Backend, ep Endpoint, code string) (selection, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.discover", trace.WithAttributes(
		attribute.String("endpoint", ep.Name),
		attribute.String("country", code),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.config.DiscoveryTimeout)
	defer cancel()

	start := time.Now()
	catalog, err := backend.ListIndices(ctx)
	d.metrics.ObservePhase(PhaseDiscovering.String(), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "catalog unavailable")
		if elastic.KindOf(err) == elastic.KindMalformed {
			return selection{}, dErrors.Wrap(err, dErrors.CodeNoIdentityIndex,
				fmt.Sprintf("index catalog of %s is unreadable", ep.Name))
		}
		return selection{}, dErrors.Wrap(err, dErrors.CodeSearchUnavailable,
			fmt.Sprintf("index discovery on %s failed", ep.Name))
	}

	sel, ok := selectIndex(catalog, code)
	if !ok {
		span.SetStatus(codes.Error, "empty catalog")
		return selection{}, dErrors.New(dErrors.CodeNoIdentityIndex,
			fmt.Sprintf("no searchable index found on %s", ep.Name))
	}
	span.SetAttributes(attribute.String("index", sel.Index), attribute.Bool("fallback", sel.Fallback))
	return sel, nil
}

func (d *Dispatcher) search(ctx context.Context, backend Backend, ep Endpoint, index string, body any) (elastic.SearchResult, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.search", trace.WithAttributes(
		attribute.String("endpoint", ep.Name),
		attribute.String("index", index),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.config.SearchTimeout)
	defer cancel()

	start := time.Now()
	result, err := backend.Search(ctx, index, body)
	d.metrics.ObservePhase(PhaseQuerying.String(), time.Since(start))
	if err != nil {
		span.RecordError(err)
		if Canceled(err) {
			span.SetStatus(codes.Error, "search canceled")
			d.logger.InfoContext(ctx, "search abandoned by caller",
				"endpoint", ep.Name,
				"index", index,
			)
		} else {
			span.SetStatus(codes.Error, "search failed")
			d.logger.ErrorContext(ctx, "search failed",
				"endpoint", ep.Name,
				"index", index,
				"kind", string(elastic.KindOf(err)),
				"error", err,
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeSearchUnavailable,
			fmt.Sprintf("search on %s failed", ep.Name))
	}
	if h, ok := result.(elastic.Hits); ok {
		span.SetAttributes(attribute.Int("hits", len(h.Items)))
	}
	return result, nil
}

// forgetIndex drops a cached index that failed to serve a search, so the
// next dispatch for the country runs discovery again.
func (d *Dispatcher) forgetIndex(ctx context.Context, ep Endpoint, code, index string) {
	if d.cache == nil {
		return
	}
	key := cacheKey(ep, code)
	if err := d.cache.Delete(context.WithoutCancel(ctx), key); err != nil {
		d.logger.WarnContext(ctx, "index cache eviction failed", "key", key, "error", err)
		return
	}
	d.metrics.IncrementIndexCache("evicted")
	d.logger.WarnContext(ctx, "evicted cached index after failed search",
		"endpoint", ep.Name,
		"country", code,
		"index", index,
	)
}

// Canceled reports whether err comes from the caller abandoning the request
// rather than from the backend.
func Canceled(err error) bool {
	return elastic.KindOf(err) == elastic.KindCanceled || errors.Is(err, context.Canceled)
}

func cacheKey(ep Endpoint, code string) string {
	return ep.Name + ":" + strings.ToLower(code)
}
