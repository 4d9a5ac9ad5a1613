package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"identitypulse/internal/identity/dispatch/elastic"
	"identitypulse/internal/identity/metrics"
)

var allStatuses = []string{
	string(StatusUnknown), string(StatusOnline), string(StatusOffline), string(StatusMaintenance),
}

// HealthChecker refreshes the health table off the request path.
type HealthChecker struct {
	table    *HealthTable
	backends map[string]Backend
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// checking serialises CheckAll so the scheduled cycle and an on-demand
	// check never write the same endpoint out of order.
	checking sync.Mutex

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthChecker checks the dispatcher's endpoints every interval.
func NewHealthChecker(d *Dispatcher, interval time.Duration) (*HealthChecker, error) {
	if interval <= 0 {
		return nil, errors.New("health check interval must be positive")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthChecker{
		table:    d.table,
		backends: d.backends,
		timeout:  d.config.HealthTimeout,
		interval: interval,
		logger:   d.logger,
		metrics:  d.metrics,
		now:      time.Now,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start runs a check immediately and then on every interval.
func (h *HealthChecker) Start() error {
	if _, err := h.cron.AddFunc(fmt.Sprintf("@every %s", h.interval), func() {
		h.CheckAll(h.ctx)
	}); err != nil {
		return fmt.Errorf("schedule health checks: %w", err)
	}
	h.cron.Start()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.CheckAll(h.ctx)
	}()

	h.logger.Info("endpoint health checks started", "interval", h.interval.String())
	return nil
}

// Stop cancels in-flight checks and waits for them to return.
func (h *HealthChecker) Stop() {
	h.cancel()
	<-h.cron.Stop().Done()
	h.wg.Wait()
	h.logger.Info("endpoint health checks stopped")
}

// CheckAll checks every endpoint in parallel and returns the refreshed table.
// Concurrent calls run one after the other.
func (h *HealthChecker) CheckAll(ctx context.Context) []EndpointSnapshot {
	h.checking.Lock()
	defer h.checking.Unlock()

	var g errgroup.Group
	for _, ep := range h.table.Endpoints() {
		g.Go(func() error {
			h.check(ctx, ep)
			return nil
		})
	}
	_ = g.Wait()
	return h.table.Snapshot()
}

func (h *HealthChecker) check(ctx context.Context, ep Endpoint) {
	backend, ok := h.backends[ep.Name]
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	health, err := backend.ClusterHealth(ctx)
	next := EndpointStatus{
		Status:           classifyHealth(health, err),
		LastResponseTime: time.Since(start),
		LastCheckedAt:    h.now(),
	}
	if err != nil {
		next.LastError = elastic.Summary(err)
	}

	prev, _ := h.table.Status(ep.Name)
	h.table.Set(ep.Name, next)
	h.metrics.SetEndpointStatus(ep.Name, string(next.Status), allStatuses)

	if prev.Status != next.Status {
		h.logger.InfoContext(ctx, "endpoint status changed",
			"endpoint", ep.Name,
			"from", string(prev.Status),
			"to", string(next.Status),
			"latency_ms", next.LastResponseTime.Milliseconds(),
		)
	}
	if err != nil {
		h.logger.WarnContext(ctx, "endpoint health check failed", "endpoint", ep.Name, "error", err)
	}
}

func classifyHealth(h elastic.ClusterHealth, err error) Status {
	if err != nil {
		return StatusOffline
	}
	switch h.Status {
	case elastic.HealthGreen, elastic.HealthYellow:
		return StatusOnline
	case elastic.HealthRed:
		return StatusMaintenance
	default:
		return StatusOffline
	}
}
