package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blastRunsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringmaster",
			Subsystem: "blast",
			Name:      "runs_total",
			Help:      "Total text blast runs by final state.",
		},
		[]string{"state"}, // "completed", "failed"
	)

	blastBatchesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringmaster",
			Subsystem: "blast",
			Name:      "batches_total",
			Help:      "Total send-blast batches by outcome.",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	blastMessagesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringmaster",
			Subsystem: "blast",
			Name:      "messages_total",
			Help:      "Total blast messages reported by the backend.",
		},
		[]string{"status"}, // "sent", "failed"
	)

	blastBatchDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ringmaster",
			Subsystem: "blast",
			Name:      "batch_duration_seconds",
			Help:      "Duration of one send-blast request.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	blastInProgressGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ringmaster",
			Subsystem: "blast",
			Name:      "in_progress",
			Help:      "1 while a text blast is being sent.",
		},
	)

	exportsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ringmaster",
			Subsystem: "call_logs",
			Name:      "exports_total",
			Help:      "Total call log CSV exports.",
		},
	)

	remainingBudgetGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ringmaster",
			Subsystem: "cost",
			Name:      "remaining_budget",
			Help:      "Remaining budget from the last cost breakdown.",
		},
	)
)
