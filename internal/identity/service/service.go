// Package service runs the identity search pipeline: resolve the country,
// normalize the input, build the query, dispatch it, score the top hit and
// assemble the result.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"identitypulse/internal/identity/country"
	"identitypulse/internal/identity/dispatch"
	"identitypulse/internal/identity/metrics"
	"identitypulse/internal/identity/models"
	"identitypulse/internal/identity/normalize"
	"identitypulse/internal/identity/query"
	"identitypulse/internal/identity/response"
	"identitypulse/internal/identity/scoring"
	dErrors "identitypulse/pkg/domain-errors"
)

type Registry interface {
	Get(code string) (*country.Profile, error)
	List() []*country.Profile
}

type Dispatcher interface {
	Dispatch(ctx context.Context, p *country.Profile, body any) (*dispatch.Outcome, error)
}

type HealthTable interface {
	Snapshot() []dispatch.EndpointSnapshot
}

type HealthChecker interface {
	CheckAll(ctx context.Context) []dispatch.EndpointSnapshot
}

// Service orchestrates identity searches.
type Service struct {
	registry   Registry
	dispatcher Dispatcher
	table      HealthTable
	checker    HealthChecker
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	newID      func() string
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithHealthTable(t HealthTable) Option {
	return func(s *Service) {
		s.table = t
	}
}

func WithHealthChecker(c HealthChecker) Option {
	return func(s *Service) {
		s.checker = c
	}
}

// New constructs a Service.
func New(registry Registry, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs one identity search. An unknown country or invalid input fails
// before any backend call.
func (s *Service) Search(ctx context.Context, q models.IdentityQuery) (*models.MatchResult, error) {
	start := s.now()
	searchID := s.newID()

	profile, err := s.registry.Get(q.CountryCode)
	if err != nil {
		return nil, s.fail(ctx, searchID, "unknown", start, err)
	}

	normalized, err := normalize.Request(q, profile)
	if err != nil {
		return nil, s.fail(ctx, searchID, profile.Code(), start, err)
	}

	outcome, err := s.dispatcher.Dispatch(ctx, profile, query.Build(normalized, profile))
	if err != nil {
		if !isDomain(err) {
			err = dErrors.Wrap(err, dErrors.CodeInternal, "dispatch failed")
		}
		return nil, s.fail(ctx, searchID, profile.Code(), start, err)
	}

	hits, maxScore := outcome.Candidates()
	scores := scoring.Score(normalized, profile, hits, maxScore)
	latency := s.now().Sub(start)

	result := response.Assemble(response.Input{
		SearchID: searchID,
		Scores:   scores,
		Hits:     hits,
		Latency:  latency,
		Endpoint: outcome.Endpoint.Name,
		Index:    outcome.Index,
		Warnings: outcome.Warnings,
	})

	s.logger.InfoContext(ctx, "identity search completed",
		"search_id", searchID,
		"country", profile.Code(),
		"endpoint", outcome.Endpoint.Name,
		"index", outcome.Index,
		"index_source", string(outcome.IndexSource),
		"candidates", len(hits),
		"overall_match", result.OverallMatchPercent,
		"tier", string(result.ConfidenceTier),
		"latency_ms", result.SearchLatencyMs,
	)
	s.metrics.ObserveSearch(profile.Code(), "ok", latency)
	s.metrics.IncrementOutcome(profile.Code(), string(result.ConfidenceTier))
	return result, nil
}

// Countries lists every supported country.
func (s *Service) Countries() []*country.Profile {
	return s.registry.List()
}

// Country returns one country's profile.
func (s *Service) Country(code string) (*country.Profile, error) {
	return s.registry.Get(code)
}

// Servers returns the last known status of every endpoint.
func (s *Service) Servers() []dispatch.EndpointSnapshot {
	if s.table == nil {
		return []dispatch.EndpointSnapshot{}
	}
	return s.table.Snapshot()
}

// CheckServers runs a health check cycle now and returns the refreshed table.
func (s *Service) CheckServers(ctx context.Context) ([]dispatch.EndpointSnapshot, error) {
	if s.checker == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "health checker is not configured")
	}
	return s.checker.CheckAll(ctx), nil
}

func (s *Service) fail(ctx context.Context, searchID, countryCode string, start time.Time, err error) error {
	if dispatch.Canceled(err) {
		s.logger.InfoContext(ctx, "identity search canceled by caller",
			"search_id", searchID,
			"country", countryCode,
		)
		s.metrics.ObserveSearch(countryCode, "canceled", s.now().Sub(start))
		return err
	}

	code := dErrors.CodeOf(err)
	level := slog.LevelWarn
	if code == dErrors.CodeInternal {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "identity search failed",
		"search_id", searchID,
		"country", countryCode,
		"code", string(code),
		"retryable", dErrors.IsRetryable(err),
		"error", err,
	)
	s.metrics.IncrementError(string(code))
	s.metrics.ObserveSearch(countryCode, "error", s.now().Sub(start))
	return err
}

func isDomain(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}
