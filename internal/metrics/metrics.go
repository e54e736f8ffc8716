// Package metrics holds the Prometheus collectors exported on /metrics.
//
// Import Path: lakesync.dev/lakesync/internal/metrics
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lakesync_sync_runs_total",
		Help: "Requester sync runs by trigger and outcome.",
	}, []string{"trigger", "outcome"})

	syncRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lakesync_sync_run_duration_seconds",
		Help:    "Wall-clock duration of requester sync runs.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	}, []string{"trigger"})

	syncRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lakesync_sync_records_total",
		Help: "Requesters processed by result (matched, updated, skipped, failed).",
	}, []string{"result"})

	freshServiceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lakesync_freshservice_requests_total",
		Help: "Outbound FreshService API calls by operation and status.",
	}, []string{"op", "status"})
)

// RunCounts carries the per-run record counters.
type RunCounts struct {
	Matched, Updated, Skipped, Failed int
}

// ObserveRun records one finished or rejected run.
func ObserveRun(trigger, outcome string, elapsed time.Duration, counts RunCounts) {
	syncRunsTotal.WithLabelValues(trigger, outcome).Inc()
	if outcome == OutcomeRejected {
		return
	}
	syncRunDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
	syncRecordsTotal.WithLabelValues("matched").Add(float64(counts.Matched))
	syncRecordsTotal.WithLabelValues("updated").Add(float64(counts.Updated))
	syncRecordsTotal.WithLabelValues("skipped").Add(float64(counts.Skipped))
	syncRecordsTotal.WithLabelValues("failed").Add(float64(counts.Failed))
}

// ObserveFreshServiceRequest counts one outbound API call.
func ObserveFreshServiceRequest(op, status string) {
	freshServiceRequestsTotal.WithLabelValues(op, status).Inc()
}
