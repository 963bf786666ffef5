// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cftracker_http_requests_total",
		Help: "API requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cftracker_http_request_duration_seconds",
		Help:    "API request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// RemoteRequests counts Codeforces API calls by method and outcome.
	RemoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cftracker_remote_requests_total",
		Help: "Codeforces API calls by method and outcome",
	}, []string{"method", "outcome"})

	RemoteRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cftracker_remote_request_duration_seconds",
		Help:    "Codeforces API call latency, excluding rate limiter wait",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cftracker_circuit_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cftracker_circuit_breaker_transitions_total",
		Help: "Circuit breaker state transitions",
	}, []string{"name", "from", "to"})

	// StudentSyncs counts per-student sync outcomes (ok, failed, superseded).
	StudentSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cftracker_student_syncs_total",
		Help: "Per-student sync runs by outcome",
	}, []string{"outcome"})

	RecordsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cftracker_records_inserted_total",
		Help: "Rows inserted by sync, by collection",
	}, []string{"collection"})

	BatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cftracker_sync_batch_duration_seconds",
		Help:    "Wall time of sync batches by trigger",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	}, []string{"trigger"})

	BatchRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cftracker_sync_batch_running",
		Help: "1 while a sync batch is running",
	})

	JobQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cftracker_job_queue_depth",
		Help: "Jobs waiting in the worker pool queue",
	})

	JobsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cftracker_jobs_rejected_total",
		Help: "Jobs rejected because the queue was full",
	})
)
