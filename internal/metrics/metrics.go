// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portaria_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Ingestion
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_events_ingested_total",
			Help: "Access events appended to the event store",
		},
		[]string{"event_type"},
	)

	IngestRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_ingest_rejected_total",
			Help: "Ingestion requests rejected, by error code",
		},
		[]string{"reason"},
	)

	// Reconciliation
	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portaria_reconcile_duration_seconds",
			Help:    "Time spent pairing events into sessions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"view"}, // "day_view", "export", "stays"
	)

	ReconcileEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_reconcile_events_total",
			Help: "Events fed into reconciliation",
		},
		[]string{"view"},
	)

	ReconcileOrphanExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_reconcile_orphan_exits_total",
			Help: "Exit events that could not be paired with an entry",
		},
		[]string{"view"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_exports_total",
			Help: "CSV exports, by outcome",
		},
		[]string{"result"}, // "ok", "empty", "error"
	)

	// Catalog
	EncodingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_face_encodings_total",
			Help: "Face encoding attempts, by outcome",
		},
		[]string{"result"}, // "ok", "no_face", "disabled", "error"
	)

	// Circuit breakers
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portaria_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portaria_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordReconcile records one reconciliation pass for a view.
func RecordReconcile(view string, events, orphans int, duration time.Duration) {
	ReconcileDuration.WithLabelValues(view).Observe(duration.Seconds())
	ReconcileEvents.WithLabelValues(view).Add(float64(events))
	ReconcileOrphanExits.WithLabelValues(view).Add(float64(orphans))
}
