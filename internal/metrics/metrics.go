// Package metrics registers the process-wide Prometheus collectors.
// Collectors are registered against the default registry so the
// /metrics endpoint picks them up without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RelayRequests counts relay submissions by final outcome:
	// success, invalid_input, config_error, upstream_error.
	RelayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lyra",
		Subsystem: "relay",
		Name:      "requests_total",
		Help:      "Relay submissions by outcome.",
	}, []string{"outcome"})

	// WebhookDuration observes the latency of automation webhook
	// calls, failures included.
	WebhookDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lyra",
		Subsystem: "relay",
		Name:      "webhook_duration_seconds",
		Help:      "Latency of automation webhook calls.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTPRequests counts HTTP requests served by the relay server.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lyra",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	// HTTPDuration observes request latency by method and path.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lyra",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)
