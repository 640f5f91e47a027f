package cleanup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/testutil"
)

func seed(t *testing.T, store *datastore.Store) {
	t.Helper()
	ctx := context.Background()

	// loc-0000..0003 synced; loc-0004 unsynced
	locs := testutil.Locations(5, true, false)
	locs[4].Sync = false
	require.NoError(t, store.Locations.Create(ctx, locs...))

	require.NoError(t, store.UnsafeBehaviours.Create(ctx,
		testutil.UnsafeBehaviour("ub-done", "loc-0000", true, true),
		testutil.UnsafeBehaviour("ub-pending", "loc-0001", false, false),
		testutil.UnsafeBehaviour("ub-synced-unprocessed", "loc-0003", true, false),
	))
	require.NoError(t, store.RawSensorData.Create(ctx,
		testutil.RawSensorData("rs-done", "loc-0000", "trip-1", true, true),
		testutil.RawSensorData("rs-pending", "loc-0002", "trip-1", false, false),
	))
	require.NoError(t, store.AIModelInputs.Create(ctx,
		testutil.AIModelInput("ai-done", testutil.BaseTimestamp, true, true),
		testutil.AIModelInput("ai-unprocessed", testutil.BaseTimestamp, true, false),
	))
	require.NoError(t, store.ReportStatistics.Create(ctx,
		testutil.ReportStatistics("rs-report", nil, true, true),
	))
}

func TestRun(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seed(t, store)
	ctx := context.Background()

	report, err := NewPlanner(store).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, datastore.KindCounts{
		datastore.KindUnsafeBehaviour:  1,
		datastore.KindRawSensorData:    1,
		datastore.KindAIModelInput:     1,
		datastore.KindReportStatistics: 1,
		datastore.KindLocation:         2,
	}, report.Deleted)
	assert.Equal(t, 2, report.RetainedLocations)

	// loc-0001 and loc-0002 are referenced by unsynced records; loc-0003 only
	// by a synced one; loc-0004 is unsynced
	remaining, err := store.Locations.FindUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "loc-0004", remaining[0].ID)

	synced, err := store.Locations.FindSynced(ctx)
	require.NoError(t, err)
	ids := make([]string, len(synced))
	for i, l := range synced {
		ids[i] = l.ID
	}
	assert.Equal(t, []string{"loc-0001", "loc-0002"}, ids)

	events, err := store.UnsafeBehaviours.CountUnsynced(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), events, "unsynced records are never deleted")

	leftover, err := store.AIModelInputs.CountSyncedAndProcessed(ctx)
	require.NoError(t, err)
	assert.Zero(t, leftover)
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seed(t, store)
	planner := NewPlanner(store)

	_, err := planner.Run(context.Background())
	require.NoError(t, err)

	report, err := planner.Run(context.Background())
	require.NoError(t, err)
	for kind, n := range report.Deleted {
		assert.Zerof(t, n, "second run deleted %s records", kind)
	}
}

func TestPlanDoesNotDelete(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seed(t, store)

	plan, err := NewPlanner(store).Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, plan.Total())
	assert.ElementsMatch(t, []string{"loc-0000", "loc-0003"}, plan.IDs[datastore.KindLocation])

	unsynced, cleanable, err := store.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), unsynced[datastore.KindLocation])
	assert.Equal(t, int64(4), cleanable[datastore.KindLocation])
}

func TestRunEmptyStore(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)

	report, err := NewPlanner(store).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Deleted, len(datastore.Kinds))
	assert.Zero(t, report.RetainedLocations)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seed(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPlanner(store).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunStorageFailure(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	require.NoError(t, store.Close())

	_, err := NewPlanner(store).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCleanup))
}
