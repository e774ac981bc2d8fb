package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rowsGenerated = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "variant_matrix_rows_generated",
			Help:    "Number of variant rows produced by a matrix regeneration",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024},
		},
	)

	draftsCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "variant_drafts_committed_total",
			Help: "Total number of variant drafts committed to products",
		},
	)

	draftConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "variant_draft_conflicts_total",
			Help: "Total number of draft saves rejected by the version check",
		},
		[]string{"action"},
	)
)
