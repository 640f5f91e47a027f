package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counters struct{}

func (counters) Dropped() int64 { return 2 }
func (counters) Failed() int64  { return 0 }

func TestMetricsHandler(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)
	require.NoError(t, m.RegisterNotificationSource(counters{}))

	m.Sync.RecordRun("success", "", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `drivesync_runs_total{reason="",result="success"} 1`)
	assert.Contains(t, string(body), "drivesync_notifications_dropped_total 2")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestRegisterNotificationSourceTwice(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)
	require.NoError(t, m.RegisterNotificationSource(counters{}))
	assert.Error(t, m.RegisterNotificationSource(counters{}))
}
