// Package metrics declares the Prometheus collectors for the catalog core.
//
// Usage:
//
//	metrics.GroupCacheHits.Inc()
//	metrics.ObserveRename(transacted, solutionsMoved, err)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupCacheHits counts group listings served from the list cache.
	GroupCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_group_cache_hits_total",
		Help: "Group listings served from cache",
	})

	// GroupCacheMisses counts group listings computed from the store.
	GroupCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_group_cache_misses_total",
		Help: "Group listings computed from the store",
	})

	// GroupCachePurges counts whole-cache invalidations.
	GroupCachePurges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_group_cache_purges_total",
		Help: "Whole group-list cache invalidations",
	})

	// GroupCachePurgeFailures counts invalidations the backend rejected.
	// Listings may be stale for up to the cache TTL after each one.
	GroupCachePurgeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_group_cache_purge_failures_total",
		Help: "Group-list cache invalidations that failed",
	})

	// GroupRenames counts rename propagations by mode and outcome.
	GroupRenames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compass_group_renames_total",
		Help: "Group renames propagated into solutions",
	}, []string{"mode", "outcome"})

	// RenamedSolutions counts solution documents rewritten by group renames.
	RenamedSolutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compass_group_rename_solutions_total",
		Help: "Solution documents rewritten by group renames",
	})

	// OrphanedGroupRefs is the number of distinct solution.group values with
	// no matching group, as of the last reconciliation pass.
	OrphanedGroupRefs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "compass_orphaned_group_refs",
		Help: "Distinct solution group names with no group record",
	})

	// RadarEntries is the size of the last computed radar, by group filter
	// presence.
	RadarEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compass_radar_entries",
		Help: "Entries in the last computed tech radar",
	}, []string{"filtered"})

	// RadarSkipped counts solutions left off the radar, by reason.
	RadarSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compass_radar_skipped_total",
		Help: "Approved solutions left off the radar",
	}, []string{"reason"})
)

// ObserveRename records one rename propagation.
func ObserveRename(transacted bool, moved int64, err error) {
	mode := "ordered"
	if transacted {
		mode = "transaction"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	GroupRenames.WithLabelValues(mode, outcome).Inc()
	if err == nil && moved > 0 {
		RenamedSolutions.Add(float64(moved))
	}
}
