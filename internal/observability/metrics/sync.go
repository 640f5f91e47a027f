package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/safedriveafrica/drivesync/internal/datastore"
)

// SyncMetrics contains all Prometheus metrics related to sync runs, batch
// uploads and cleanup. It records run outcomes for the orchestrator and
// request outcomes for the remote API client.
type SyncMetrics struct {
	// Run metrics
	RunsTotal       *prometheus.CounterVec // Runs by result and reason
	RunDuration     prometheus.Histogram   // Run wall time
	LastSuccessTime prometheus.Gauge       // Timestamp of the last successful run

	// Stage metrics
	RecordsUploadedTotal *prometheus.CounterVec   // Records marked synced by kind
	RecordsSkippedTotal  *prometheus.CounterVec   // Records left unsynced because they cannot be uploaded
	StageFailuresTotal   *prometheus.CounterVec   // Failed stages by kind
	StageDuration        *prometheus.HistogramVec // Stage wall time by kind

	// Remote API metrics
	RequestsTotal   *prometheus.CounterVec   // Batch-create requests by kind and status code
	RequestDuration *prometheus.HistogramVec // Batch-create latency by kind

	// Cleanup metrics
	RecordsDeletedTotal  *prometheus.CounterVec // Records reclaimed by kind
	CleanupFailuresTotal prometheus.Counter

	// Backlog
	PendingRecords *prometheus.GaugeVec // Unsynced records by kind, as of the last status read

	registry *prometheus.Registry
}

// NewSyncMetrics creates a new instance of SyncMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewSyncMetrics(registry *prometheus.Registry) (*SyncMetrics, error) {
	m := &SyncMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register sync metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for SyncMetrics.
func (m *SyncMetrics) initMetrics() {
	m.RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivesync_runs_total",
			Help: "Total number of sync runs by result and retry reason",
		},
		[]string{"result", "reason"},
	)

	m.RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drivesync_run_duration_seconds",
			Help:    "Duration of sync runs",
			Buckets: durationBuckets,
		},
	)

	m.LastSuccessTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drivesync_last_success_timestamp_seconds",
			Help: "Timestamp of the last successful sync run",
		},
	)

	m.RecordsUploadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivesync_records_uploaded_total",
			Help: "Total number of records uploaded and marked synced by kind",
		},
		[]string{"kind"},
	)

	m.RecordsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivesync_records_skipped_total",
			Help: "Total number of records skipped because they cannot be uploaded, by kind",
		},
		[]string{"kind"},
	)

	m.StageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivesync_stage_failures_total",
			Help: "Total number of failed upload stages by kind",
		},
		[]string{"kind"},
	)

	m.StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drivesync_stage_duration_seconds",
			Help:    "Duration of upload stages by kind",
			Buckets: durationBuckets,
		},
		[]string{"kind"},
	)

	m.RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivesync_api_requests_total",
			Help: "Total number of batch-create requests by kind and HTTP status",
		},
		[]string{"kind", "status"}, // status: HTTP status code, or "none" without a response
	)

	m.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drivesync_api_request_duration_seconds",
			Help:    "Latency of batch-create requests by kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	m.RecordsDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drivesync_records_deleted_total",
			Help: "Total number of records reclaimed by cleanup by kind",
		},
		[]string{"kind"},
	)

	m.CleanupFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drivesync_cleanup_failures_total",
			Help: "Total number of failed cleanups after successful runs",
		},
	)

	m.PendingRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "drivesync_pending_records",
			Help: "Number of unsynced records by kind",
		},
		[]string{"kind"},
	)
}

// RecordRun records the outcome of a sync run.
func (m *SyncMetrics) RecordRun(result, reason string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(result, reason).Inc()
	m.RunDuration.Observe(duration.Seconds())
	if result == StatusSuccess {
		m.LastSuccessTime.SetToCurrentTime()
	}
}

// RecordStage records the outcome of one upload stage.
func (m *SyncMetrics) RecordStage(kind string, uploaded, skipped int, failed bool, duration time.Duration) {
	m.RecordsUploadedTotal.WithLabelValues(kind).Add(float64(uploaded))
	if skipped > 0 {
		m.RecordsSkippedTotal.WithLabelValues(kind).Add(float64(skipped))
	}
	if failed {
		m.StageFailuresTotal.WithLabelValues(kind).Inc()
	}
	m.StageDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCleanup records the records deleted by a cleanup.
func (m *SyncMetrics) RecordCleanup(deleted datastore.KindCounts, failed bool) {
	for kind, n := range deleted {
		m.RecordsDeletedTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
	if failed {
		m.CleanupFailuresTotal.Inc()
	}
}

// ObserveRequest records one batch-create request. statusCode is 0 when no
// response was received.
func (m *SyncMetrics) ObserveRequest(kind string, statusCode int, duration time.Duration) {
	status := statusNoResponse
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.RequestsTotal.WithLabelValues(kind, status).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// SetPending updates the backlog gauges.
func (m *SyncMetrics) SetPending(unsynced datastore.KindCounts) {
	for kind, n := range unsynced {
		m.PendingRecords.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// Describe implements the prometheus.Collector interface.
func (m *SyncMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.RunsTotal.Describe(ch)
	m.RunDuration.Describe(ch)
	m.LastSuccessTime.Describe(ch)
	m.RecordsUploadedTotal.Describe(ch)
	m.RecordsSkippedTotal.Describe(ch)
	m.StageFailuresTotal.Describe(ch)
	m.StageDuration.Describe(ch)
	m.RequestsTotal.Describe(ch)
	m.RequestDuration.Describe(ch)
	m.RecordsDeletedTotal.Describe(ch)
	m.CleanupFailuresTotal.Describe(ch)
	m.PendingRecords.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *SyncMetrics) Collect(ch chan<- prometheus.Metric) {
	m.RunsTotal.Collect(ch)
	m.RunDuration.Collect(ch)
	m.LastSuccessTime.Collect(ch)
	m.RecordsUploadedTotal.Collect(ch)
	m.RecordsSkippedTotal.Collect(ch)
	m.StageFailuresTotal.Collect(ch)
	m.StageDuration.Collect(ch)
	m.RequestsTotal.Collect(ch)
	m.RequestDuration.Collect(ch)
	m.RecordsDeletedTotal.Collect(ch)
	m.CleanupFailuresTotal.Collect(ch)
	m.PendingRecords.Collect(ch)
}
