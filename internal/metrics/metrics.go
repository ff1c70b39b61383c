package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cycle Metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planwatch_cycles_total",
			Help: "Total number of sync cycle triggers by outcome",
		},
		[]string{"outcome"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "planwatch_cycle_duration_seconds",
			Help:    "Duration of completed sync cycles in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	CycleLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "planwatch_cycle_last_success_timestamp",
			Help: "Unix timestamp of the last cycle that did not fail",
		},
	)

	// Reconcile Metrics
	ReconcileRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planwatch_reconcile_rows_total",
			Help: "Snapshot rows processed by result",
		},
		[]string{"result"}, // "added", "updated", "unchanged", "skipped", "error"
	)

	// Snapshot Metrics
	SnapshotDownloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planwatch_snapshot_downloads_total",
			Help: "Snapshot fetches by result",
		},
		[]string{"result"}, // "downloaded", "not_modified", "error"
	)

	SnapshotRejectedRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planwatch_snapshot_rejected_rows_total",
			Help: "Snapshot rows that could not be mapped to a record",
		},
	)

	// Enrichment Metrics
	EnrichmentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planwatch_enrichment_total",
			Help: "Enrichment attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	EnrichmentBacklog = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "planwatch_enrichment_backlog",
			Help: "Records picked up by the most recent enrichment pass",
		},
	)

	ValidationWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planwatch_validation_warnings_total",
			Help: "Enrichments where the portal status disagreed with the snapshot",
		},
	)

	// Portal Metrics
	PortalRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planwatch_portal_requests_total",
			Help: "Requests made to the planning portal",
		},
		[]string{"endpoint", "code"},
	)

	PortalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planwatch_portal_request_duration_seconds",
			Help:    "Duration of planning portal requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	PortalBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "planwatch_portal_breaker_state",
			Help: "Portal circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	KeyResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planwatch_key_resolutions_total",
			Help: "Reference searches made to heal stale keys by result",
		},
		[]string{"result"}, // "resolved", "not_found", "error"
	)
)

// RecordCycle records a finished or rejected cycle.
func RecordCycle(outcome string, duration time.Duration, failed bool) {
	CyclesTotal.WithLabelValues(outcome).Inc()
	if outcome == "already_running" {
		return
	}
	CycleDuration.Observe(duration.Seconds())
	if !failed {
		CycleLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordReconcile adds a reconcile report's counters.
func RecordReconcile(added, updated, unchanged, skipped, errs int) {
	ReconcileRows.WithLabelValues("added").Add(float64(added))
	ReconcileRows.WithLabelValues("updated").Add(float64(updated))
	ReconcileRows.WithLabelValues("unchanged").Add(float64(unchanged))
	ReconcileRows.WithLabelValues("skipped").Add(float64(skipped))
	ReconcileRows.WithLabelValues("error").Add(float64(errs))
}

// RecordEnrichment records one enrichment attempt.
func RecordEnrichment(success, warning bool) {
	if success {
		EnrichmentTotal.WithLabelValues("success").Inc()
	} else {
		EnrichmentTotal.WithLabelValues("failure").Inc()
	}
	if warning {
		ValidationWarnings.Inc()
	}
}

// RecordPortalRequest records a portal request. A code of 0 means the
// request failed before a response arrived.
func RecordPortalRequest(endpoint string, code int, duration time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	PortalRequests.WithLabelValues(endpoint, label).Inc()
	PortalRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordKeyResolution records a reference search outcome.
func RecordKeyResolution(result string) {
	KeyResolutions.WithLabelValues(result).Inc()
}

// RecordSnapshot records a snapshot fetch and the rows it rejected.
func RecordSnapshot(result string, rejected int) {
	SnapshotDownloads.WithLabelValues(result).Inc()
	SnapshotRejectedRows.Add(float64(rejected))
}

// RecordBreakerState publishes the portal circuit breaker state.
func RecordBreakerState(state int) {
	PortalBreakerState.Set(float64(state))
}
