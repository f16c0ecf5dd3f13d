// Package metrics provides Prometheus metrics for the transit hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the refresh pipeline.
type Metrics struct {
	// Registry is the Prometheus registry for this metrics instance
	Registry *prometheus.Registry

	// Refresh cycle metrics
	RefreshCyclesTotal   *prometheus.CounterVec
	RefreshCycleDuration *prometheus.HistogramVec
	LastSuccessTimestamp *prometheus.GaugeVec

	// Per-feed fetch metrics
	FeedFetchesTotal *prometheus.CounterVec

	// Snapshot content metrics
	SnapshotEntities     *prometheus.GaugeVec
	StaleEntitiesDropped *prometheus.CounterVec
}

// New creates and registers all pipeline metrics with a new registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	refreshCyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_refresh_cycles_total",
			Help: "Total number of refresh cycles by category and outcome",
		},
		[]string{"category", "outcome"},
	)

	refreshCycleDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hub_refresh_cycle_duration_seconds",
			Help:    "Refresh cycle latency distribution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	lastSuccessTimestamp := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_last_success_timestamp_seconds",
			Help: "Unix time of the last successfully published snapshot",
		},
		[]string{"category"},
	)

	feedFetchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_feed_fetches_total",
			Help: "Total number of upstream feed fetches by feed and outcome",
		},
		[]string{"feed", "outcome"},
	)

	snapshotEntities := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hub_snapshot_entities",
			Help: "Number of entities in the current snapshot",
		},
		[]string{"category"},
	)

	staleEntitiesDropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_stale_entities_dropped_total",
			Help: "Entities discarded because their observation time fell outside the staleness window",
		},
		[]string{"category"},
	)

	registry.MustRegister(
		refreshCyclesTotal,
		refreshCycleDuration,
		lastSuccessTimestamp,
		feedFetchesTotal,
		snapshotEntities,
		staleEntitiesDropped,
	)

	return &Metrics{
		Registry:             registry,
		RefreshCyclesTotal:   refreshCyclesTotal,
		RefreshCycleDuration: refreshCycleDuration,
		LastSuccessTimestamp: lastSuccessTimestamp,
		FeedFetchesTotal:     feedFetchesTotal,
		SnapshotEntities:     snapshotEntities,
		StaleEntitiesDropped: staleEntitiesDropped,
	}
}
