package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safedriveafrica/drivesync/internal/datastore"
)

func newTestSyncMetrics(t *testing.T) *SyncMetrics {
	t.Helper()
	m, err := NewSyncMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestRecordRun(t *testing.T) {
	t.Parallel()
	m := newTestSyncMetrics(t)

	m.RecordRun("success", "", 2*time.Second)
	m.RecordRun("retry_later", "batch_upload_failure", time.Second)
	m.RecordRun("retry_later", "batch_upload_failure", time.Second)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("success", "")), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("retry_later", "batch_upload_failure")), 0)
	assert.Positive(t, testutil.ToFloat64(m.LastSuccessTime))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RunDuration))
}

func TestRecordStage(t *testing.T) {
	t.Parallel()
	m := newTestSyncMetrics(t)

	m.RecordStage("location", 1000, 0, false, time.Second)
	m.RecordStage("raw_sensor_data", 200, 3, true, time.Second)

	assert.InDelta(t, 1000.0, testutil.ToFloat64(m.RecordsUploadedTotal.WithLabelValues("location")), 0)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.RecordsSkippedTotal.WithLabelValues("raw_sensor_data")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.StageFailuresTotal.WithLabelValues("raw_sensor_data")), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.StageFailuresTotal.WithLabelValues("location")), 0)
}

func TestStageDurationBuckets(t *testing.T) {
	t.Parallel()
	m := newTestSyncMetrics(t)

	m.RecordStage("location", 500, 0, false, 3*time.Second)
	m.RecordStage("location", 500, 0, false, 40*time.Second)

	hist, ok := m.StageDuration.WithLabelValues("location").(prometheus.Histogram)
	require.True(t, ok)

	var metric dto.Metric
	require.NoError(t, hist.Write(&metric))
	h := metric.GetHistogram()
	assert.Equal(t, uint64(2), h.GetSampleCount())
	assert.InDelta(t, 43.0, h.GetSampleSum(), 0.001)

	cumulative := map[float64]uint64{}
	for _, b := range h.GetBucket() {
		cumulative[b.GetUpperBound()] = b.GetCumulativeCount()
	}
	assert.Equal(t, uint64(0), cumulative[2.5])
	assert.Equal(t, uint64(1), cumulative[5])
	assert.Equal(t, uint64(2), cumulative[60])
}

func TestObserveRequest(t *testing.T) {
	t.Parallel()
	m := newTestSyncMetrics(t)

	m.ObserveRequest("location", 201, 10*time.Millisecond)
	m.ObserveRequest("location", 0, time.Second)

	assert.InDelta(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("location", "201")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("location", "none")), 0)
}

func TestRecordCleanupAndPending(t *testing.T) {
	t.Parallel()
	m := newTestSyncMetrics(t)

	m.RecordCleanup(datastore.KindCounts{datastore.KindLocation: 4, datastore.KindAIModelInput: 2}, false)
	m.RecordCleanup(nil, true)
	m.SetPending(datastore.KindCounts{datastore.KindLocation: 7})

	assert.InDelta(t, 4.0, testutil.ToFloat64(m.RecordsDeletedTotal.WithLabelValues("location")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.CleanupFailuresTotal), 0)

	expected := `
# HELP drivesync_pending_records Number of unsynced records by kind
# TYPE drivesync_pending_records gauge
drivesync_pending_records{kind="location"} 7
`
	require.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(expected), "drivesync_pending_records"))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()
	_, err := NewSyncMetrics(registry)
	require.NoError(t, err)
	_, err = NewSyncMetrics(registry)
	assert.Error(t, err)
}

type counters struct{ dropped, failed int64 }

func (c counters) Dropped() int64 { return c.dropped }
func (c counters) Failed() int64  { return c.failed }

func TestNotificationMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewNotificationMetrics(prometheus.NewRegistry(), counters{dropped: 3, failed: 1})
	require.NoError(t, err)

	assert.InDelta(t, 3.0, testutil.ToFloat64(m.NotificationsDroppedTotal), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.DeliveryErrorsTotal), 0)
}
