package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ringmaster",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests to the calling backend.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	requestsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringmaster",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total requests to the calling backend by outcome.",
		},
		[]string{"operation", "outcome"}, // outcome: "ok", "transport", "application", "decode"
	)
)
