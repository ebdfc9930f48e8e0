package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "activity_client",
			Name:      "requests_total",
			Help:      "SDK calls by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "activity_client",
			Name:      "retries_total",
			Help:      "Retried HTTP attempts by operation.",
		},
		[]string{"op"},
	)

	operationsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "activity_client",
			Name:      "operations_applied_total",
			Help:      "Feed operations applied to a local view by kind.",
		},
		[]string{"kind"},
	)
)
