// Package metrics holds the wishlist service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wishlist_items_added_total",
			Help: "Total number of products added to wishlists",
		},
	)

	MergeItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_merge_items_total",
			Help: "Items processed while merging anonymous lists, by result",
		},
		[]string{"result"},
	)

	PriceDropsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wishlist_price_drops_detected_total",
			Help: "Total number of price drops detected by the scanner",
		},
	)

	SweepDeletedLists = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wishlist_sweep_deleted_lists_total",
			Help: "Total number of expired anonymous lists removed",
		},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wishlist_job_runs_total",
			Help: "Background job runs, by job and status",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wishlist_job_duration_seconds",
			Help:    "Background job run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"job"},
	)
)

// RecordMerge adds a merge outcome to the item counters.
func RecordMerge(merged, skipped, failed int) {
	MergeItems.WithLabelValues("merged").Add(float64(merged))
	MergeItems.WithLabelValues("skipped").Add(float64(skipped))
	MergeItems.WithLabelValues("failed").Add(float64(failed))
}
