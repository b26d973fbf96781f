// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_http_requests_total",
			Help: "Total HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PaymentsInitiatedTotal counts payment requests accepted into the ledger
	PaymentsInitiatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_payments_initiated_total",
			Help: "Payment requests created, by bridge protocol",
		},
		[]string{"protocol"},
	)

	// PaymentsSettledTotal counts payment requests marked processed
	PaymentsSettledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_payments_settled_total",
			Help: "Payment requests settled, by bridge protocol",
		},
		[]string{"protocol"},
	)

	// PaymentsRejectedTotal counts rejected initiation attempts by error kind
	PaymentsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_payments_rejected_total",
			Help: "Rejected payment initiations, by error kind",
		},
		[]string{"reason"},
	)

	// DuplicateCallbacksTotal counts replayed settlement callbacks
	DuplicateCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_duplicate_callbacks_total",
			Help: "Settlement callbacks ignored because the request was already processed",
		},
		[]string{"protocol"},
	)

	// DispatchDuration observes outbound bridge dispatch latency
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "router_dispatch_duration_seconds",
			Help:    "Bridge dispatch latency, by protocol",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"protocol"},
	)

	// PendingRequestsGauge tracks requests awaiting a settlement callback
	PendingRequestsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_pending_requests",
			Help: "Payment requests dispatched but not yet settled",
		},
	)

	// StuckRequestsGauge tracks pending requests older than the monitor threshold
	StuckRequestsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "router_stuck_requests",
			Help: "Pending payment requests older than the reporting threshold",
		},
	)

	// DatabaseConnectionsGauge tracks database pool state
	DatabaseConnectionsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "router_database_connections",
			Help: "Database connection pool state",
		},
		[]string{"state"},
	)
)
