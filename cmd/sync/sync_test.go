package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safedriveafrica/drivesync/internal/app"
	"github.com/safedriveafrica/drivesync/internal/cleanup"
	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/datastore"
	syncjob "github.com/safedriveafrica/drivesync/internal/sync"
)

func TestWriteReport_Success(t *testing.T) {
	t.Parallel()

	report := &syncjob.Report{
		Result: syncjob.ResultSuccess,
		Stages: []syncjob.StageReport{
			{Kind: datastore.KindLocation, Found: 700, Chunks: 2, ChunksCommitted: 2, Uploaded: 700},
			{Kind: datastore.KindRawSensorData, Found: 3, Skipped: 1, Chunks: 1, ChunksCommitted: 1, Uploaded: 2},
		},
		Cleanup:  &cleanup.Report{Deleted: datastore.KindCounts{datastore.KindLocation: 5}, RetainedLocations: 1},
		Duration: 1500 * time.Millisecond,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "success")
	assert.NotContains(t, out, "Reason:")
	assert.Regexp(t, `location\s+700\s+0\s+2/2\s+700`, out)
	assert.Regexp(t, `raw_sensor_data\s+3\s+1\s+1/1\s+2`, out)
	assert.Contains(t, out, "5 deleted, 1 locations retained")
}

func TestWriteReport_RetryLater(t *testing.T) {
	t.Parallel()

	report := &syncjob.Report{
		Result: syncjob.ResultRetryLater,
		Reason: syncjob.ReasonConnectivityUnavailable,
		Err:    errors.New("no usable network connection"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, report))

	out := buf.String()
	assert.Contains(t, out, "retry_later")
	assert.Contains(t, out, "connectivity_unavailable")
	assert.Contains(t, out, "no usable network connection")
	assert.NotContains(t, out, "KIND")
	assert.NotContains(t, out, "Cleanup")
}

func TestCommand_OfflineExitsWithTempFail(t *testing.T) {
	settings := &conf.Settings{
		API: conf.APISettings{BaseURL: "http://api.example.test"},
		Datastore: conf.DatastoreSettings{
			Type:   conf.DatastoreSQLite,
			SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "drivesync.db")},
		},
	}

	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--offline", "--output", "json"})

	err := cmd.ExecuteContext(context.Background())

	var exitErr *app.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, app.ExitTempFail, exitErr.Code)

	var report syncjob.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, syncjob.ResultRetryLater, report.Result)
	assert.Equal(t, syncjob.ReasonConnectivityUnavailable, report.Reason)
	assert.Empty(t, report.Stages)
}
