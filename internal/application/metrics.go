package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsRequested counts accepted proposals.
	// Labels: kind ("move", "reopen"), to_stage.
	transitionsRequested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealerpipe_transitions_requested_total",
		Help: "Stage transitions accepted by the engine",
	}, []string{"kind", "to_stage"})

	// syncOutcomes counts how committed transitions were resolved.
	syncOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dealerpipe_sync_outcomes_total",
		Help: "Resolved repository syncs by outcome",
	}, []string{"outcome"})

	saveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dealerpipe_sync_save_duration_seconds",
		Help:    "Repository save latency as seen by the reconciler",
		Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15},
	})
)
