package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity search module.
type Metrics struct {
	// End-to-end search latency by country and outcome
	SearchLatency *prometheus.HistogramVec

	// Completed searches by country and confidence tier
	SearchOutcome *prometheus.CounterVec

	// Failed searches by error code
	SearchErrors *prometheus.CounterVec

	// Time spent in each dispatch phase
	PhaseLatency *prometheus.HistogramVec

	// 1 for the endpoint's current status, 0 for the others
	EndpointStatus *prometheus.GaugeVec

	// Discovered-index cache lookups by result
	IndexCacheLookups *prometheus.CounterVec
}

// New creates a new Metrics instance with all identity metrics registered.
func New() *Metrics {
	return &Metrics{
		SearchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "identitypulse_search_duration_seconds",
			Help:    "Duration of identity searches including discovery and scoring",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"country", "outcome"}), // outcome: "ok", "error", "canceled"

		SearchOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identitypulse_search_outcomes_total",
			Help: "Completed identity searches by country and confidence tier",
		}, []string{"country", "tier"}),

		SearchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identitypulse_search_errors_total",
			Help: "Failed identity searches by error code",
		}, []string{"code"}),

		PhaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "identitypulse_dispatch_phase_duration_seconds",
			Help:    "Duration of dispatch phases",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"phase"}), // phase: "discovering", "querying"

		EndpointStatus: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "identitypulse_endpoint_status",
			Help: "Current endpoint status as reported by the health checker",
		}, []string{"endpoint", "status"}),

		IndexCacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "identitypulse_index_cache_lookups_total",
			Help: "Discovered-index cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error", "evicted"
	}
}

// ObserveSearch records a finished search.
func (m *Metrics) ObserveSearch(country, outcome string, d time.Duration) {
	if m != nil {
		m.SearchLatency.WithLabelValues(country, outcome).Observe(d.Seconds())
	}
}

// IncrementOutcome records the tier of a completed search.
func (m *Metrics) IncrementOutcome(country, tier string) {
	if m != nil {
		m.SearchOutcome.WithLabelValues(country, tier).Inc()
	}
}

// IncrementError records a failed search.
func (m *Metrics) IncrementError(code string) {
	if m != nil {
		m.SearchErrors.WithLabelValues(code).Inc()
	}
}

// ObservePhase records time spent in a dispatch phase.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m != nil {
		m.PhaseLatency.WithLabelValues(phase).Observe(d.Seconds())
	}
}

// SetEndpointStatus marks status as the endpoint's current status.
func (m *Metrics) SetEndpointStatus(endpoint, status string, all []string) {
	if m == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == status {
			v = 1
		}
		m.EndpointStatus.WithLabelValues(endpoint, s).Set(v)
	}
}

// IncrementIndexCache records a discovered-index cache lookup.
func (m *Metrics) IncrementIndexCache(result string) {
	if m != nil {
		m.IndexCacheLookups.WithLabelValues(result).Inc()
	}
}
