package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BreakerStates is the current breaker state per service
	// (0 closed, 1 open, 2 half-open).
	BreakerStates = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dealmachine",
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per service (0 closed, 1 open, 2 half-open)",
		},
		[]string{"service"},
	)

	// BreakerRejections counts calls refused by an open breaker.
	BreakerRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealmachine",
			Subsystem: "resilience",
			Name:      "breaker_rejections_total",
			Help:      "Calls refused because the service's circuit breaker was open",
		},
		[]string{"service"},
	)

	// Retries counts retried attempts per service.
	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealmachine",
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Retried calls to remote services",
		},
		[]string{"service"},
	)
)
