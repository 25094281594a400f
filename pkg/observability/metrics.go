// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the jsonhandler bridge.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LatencyBuckets spans fast in-process handlers (1ms) up to slow external
// handlers near the default exchange timeout (60s).
var LatencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// Relay outcome labels.
const (
	RelayRelayed   = "relayed"
	RelayMalformed = "malformed"
	RelayNotLive   = "not_live"
	RelayFailed    = "failed"
)

// Dispatch result labels.
const (
	DispatchAccepted = "accepted"
	DispatchRejected = "rejected"
	DispatchError    = "error"
)

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonhandler_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jsonhandler_request_duration_seconds",
			Help:    "Request duration",
			Buckets: LatencyBuckets,
		},
		[]string{"method", "route"},
	)

	// PendingExchanges tracks exchanges suspended while waiting for a response.
	PendingExchanges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jsonhandler_pending_exchanges",
			Help: "Suspended exchanges awaiting a response",
		},
	)

	// DispatchTotal counts envelope submissions by backend and result.
	DispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonhandler_dispatch_total",
			Help: "Envelope submissions",
		},
		[]string{"backend", "result"},
	)

	// DispatchLatency records how long the submit call took.
	DispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jsonhandler_dispatch_latency_seconds",
			Help:    "Submit call latency",
			Buckets: LatencyBuckets,
		},
		[]string{"backend"},
	)

	// RelayTotal counts response-channel exchanges by outcome.
	RelayTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonhandler_relay_total",
			Help: "Response channel relays",
		},
		[]string{"outcome"},
	)

	// ResponseWait records the time a suspended exchange waited for its response.
	ResponseWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "jsonhandler_response_wait_seconds",
			Help:    "Time from dispatch to relayed response",
			Buckets: LatencyBuckets,
		},
	)

	// SpooledBodiesTotal counts request bodies spooled to temporary files.
	SpooledBodiesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jsonhandler_spooled_bodies_total",
			Help: "Request bodies spooled to disk",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		PendingExchanges,
		DispatchTotal,
		DispatchLatency,
		RelayTotal,
		ResponseWait,
		SpooledBodiesTotal,
	)
}
