package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestsTotal counts backend calls by endpoint and outcome
	// (ok, status, transport, circuit_open, canceled).
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intent_backend_requests_total",
		Help: "Synthesis backend requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intent_backend_request_duration_seconds",
		Help:    "Synthesis backend request latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"endpoint"})

	breakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intent_backend_circuit_state",
		Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	})
)
