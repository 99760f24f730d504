package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SheetImports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskchat_sheet_imports_total",
			Help: "Spreadsheet imports by outcome",
		},
		[]string{"outcome"},
	)

	SynthRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskchat_synth_requests_total",
			Help: "Model requests by outcome",
		},
		[]string{"outcome"},
	)

	SynthDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deskchat_synth_duration_seconds",
			Help:    "Latency of model requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		},
	)

	CitationsReturned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deskchat_citations_returned_total",
			Help: "Citations attached to assistant turns",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "deskchat_sessions_active",
			Help: "Sessions currently held in memory",
		},
	)
)
