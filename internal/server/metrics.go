package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests.
	// Labels: route, method, status
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealmachine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration tracks handler latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dealmachine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// OpenSessions is the number of live sessions.
	OpenSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dealmachine",
			Subsystem: "sessions",
			Name:      "open",
			Help:      "Number of open editing sessions",
		},
	)

	// Extractions counts text and document merges.
	// Labels: source (text, document), result (ok, unavailable, error)
	Extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dealmachine",
			Subsystem: "sessions",
			Name:      "extractions_total",
			Help:      "Total number of extraction merges",
		},
		[]string{"source", "result"},
	)
)
