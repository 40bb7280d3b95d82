// Package metrics holds the prometheus collectors of the discovery service.
// Collectors register on the default registry, which /metrics exposes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discovery_search_duration_seconds",
			Help:    "Duration of profile searches in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	// SearchErrors counts failed searches by error kind.
	SearchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_search_errors_total",
			Help: "Total number of failed profile searches",
		},
		[]string{"kind"},
	)

	// LikesTotal counts like calls by result: inserted, idempotent, error.
	LikesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_likes_total",
			Help: "Total number of like operations by result",
		},
		[]string{"result"},
	)

	MatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_matches_created_total",
			Help: "Total number of matches created",
		},
	)

	MatchesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_matches_removed_total",
			Help: "Total number of matches torn down by an unlike",
		},
	)

	// MatchConflicts counts reciprocity races that ended in a rollback.
	MatchConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_conflicts_total",
			Help: "Total number of match creation conflicts",
		},
	)

	NotifyEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_events_total",
			Help: "Total number of notification deliveries by type and result",
		},
		[]string{"type", "result"},
	)

	// CacheLookups counts received-like count lookups by result: hit, miss, error.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_like_count_lookups_total",
			Help: "Total number of received-like count cache lookups",
		},
		[]string{"result"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// ObserveSearch records a search duration and, on failure, its error kind.
func ObserveSearch(start time.Time, kind string) {
	SearchDuration.Observe(time.Since(start).Seconds())
	if kind != "" {
		SearchErrors.WithLabelValues(kind).Inc()
	}
}

func RecordNotify(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	NotifyEvents.WithLabelValues(eventType, result).Inc()
}
