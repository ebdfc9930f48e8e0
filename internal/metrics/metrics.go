// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "activity"

var (
	// OperationsEmitted counts feed operations returned to clients by kind.
	OperationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_emitted_total",
			Help:      "Feed reconciliation operations returned to clients.",
		},
		[]string{"kind"},
	)

	// DiffDuration observes time spent fetching and diffing per entry point.
	DiffDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diff_duration_seconds",
			Help:      "Latency of fetch plus diff computation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Mutations counts create/update/edit commands by outcome.
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutation commands by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	// Notifications counts notification deliveries by outcome.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Entry notifications by outcome (delivered, failed, dropped).",
		},
		[]string{"outcome"},
	)

	// StreamConnections is the number of open websocket push streams.
	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connections",
			Help:      "Open websocket push streams.",
		},
	)

	// HTTPRequestDuration observes handler latency by route template.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP handler latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "code"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
