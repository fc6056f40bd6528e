// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolverLookups counts metadata resolutions by outcome:
	// direct, scan, miss, empty, error.
	ResolverLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_resolver_lookups_total",
			Help: "Metadata resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// CoverRequests counts cover pipeline runs by the path that produced the
	// served artifact: cached, extracted, synthesized, failed.
	CoverRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_cover_requests_total",
			Help: "Cover pipeline runs by outcome",
		},
		[]string{"outcome", "forced"},
	)

	// CoverStageDuration observes each pipeline stage.
	CoverStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookshelf_cover_stage_duration_seconds",
			Help:    "Duration of cover pipeline stages",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	// RasterAttempts counts rasterizer probe attempts by probe and result:
	// success, failure, rejected, unavailable.
	RasterAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_raster_attempts_total",
			Help: "Rasterizer probe attempts by result",
		},
		[]string{"probe", "result"},
	)

	// CircuitBreakerState is 0 closed, 1 open, 2 half-open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookshelf_circuit_breaker_state",
			Help: "Rasterizer circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitions counts breaker state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_circuit_breaker_transitions_total",
			Help: "Rasterizer circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// ObjectOperations counts object store calls by operation and result.
	ObjectOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_object_operations_total",
			Help: "Object store operations by result",
		},
		[]string{"op", "result"},
	)

	// BackfillRecords counts backfill decisions: created, skipped, failed.
	BackfillRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_backfill_records_total",
			Help: "Backfill outcomes per source object",
		},
		[]string{"result"},
	)

	// WatcherEvents counts watcher decisions: created, skipped, failed, ignored.
	WatcherEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookshelf_watcher_events_total",
			Help: "Book directory watcher outcomes per settled event",
		},
		[]string{"result"},
	)
)
