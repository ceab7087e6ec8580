// Package metrics exposes the Prometheus collectors emitted by the commit
// pipeline and the change feed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PatchesCommitted counts patches that landed successfully, by object
	// type.
	PatchesCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crux_patches_committed_total",
			Help: "Total number of patches committed to an object's log",
		},
		[]string{"object_type"},
	)

	// PatchesDropped counts patches that rebase determined were obsolete.
	PatchesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crux_patches_dropped_total",
			Help: "Total number of patches dropped by rebase as obsolete",
		},
		[]string{"object_type"},
	)

	// PatchesRejected counts patches that failed to apply or commit, by
	// error kind.
	PatchesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crux_patches_rejected_total",
			Help: "Total number of patches rejected by the commit pipeline",
		},
		[]string{"object_type", "error_kind"},
	)

	// CommitDuration tracks end-to-end latency of pipeline.Submit, including
	// rebase and the store round trip.
	CommitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crux_commit_duration_seconds",
			Help:    "Duration of the commit pipeline per patch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"object_type"},
	)

	// RebaseFoldLength tracks how many already-committed operations a
	// candidate patch had to be rebased through.
	RebaseFoldLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crux_rebase_fold_length",
			Help:    "Number of committed operations a patch was rebased through",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"object_type"},
	)

	// FeedSubscribers tracks the number of connected change-feed
	// subscribers per object type.
	FeedSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crux_feed_subscribers",
			Help: "Number of connected change-feed subscribers",
		},
		[]string{"object_type"},
	)

	// FeedDisconnectsTotal counts subscribers dropped for backpressure.
	FeedDisconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crux_feed_disconnects_total",
			Help: "Total number of change-feed subscribers disconnected for falling behind",
		},
		[]string{"object_type"},
	)
)
