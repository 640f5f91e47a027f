package sync

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/safedriveafrica/drivesync/internal/cleanup"
	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/connectivity"
	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/notification"
	"github.com/safedriveafrica/drivesync/internal/syncapi"
	"github.com/safedriveafrica/drivesync/internal/testutil"
)

// fakeAPI records batch-create calls. failOn makes the n-th call (1-based,
// counted per kind) for a kind fail.
type fakeAPI struct {
	calls  []string
	sizes  map[string][]int
	failOn map[string]int

	locations []syncapi.LocationCreate
	samples   []syncapi.RawSensorDataCreate
	reports   []syncapi.ReportStatisticsCreate
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{sizes: map[string][]int{}, failOn: map[string]int{}}
}

func (f *fakeAPI) record(kind string, n int) error {
	f.calls = append(f.calls, kind)
	f.sizes[kind] = append(f.sizes[kind], n)
	if f.failOn[kind] == len(f.sizes[kind]) {
		return fmt.Errorf("%s: unexpected status 500", kind)
	}
	return nil
}

func (f *fakeAPI) BatchCreateLocations(_ context.Context, r []syncapi.LocationCreate) error {
	f.locations = append(f.locations, r...)
	return f.record("location", len(r))
}

func (f *fakeAPI) BatchCreateUnsafeBehaviours(_ context.Context, r []syncapi.UnsafeBehaviourCreate) error {
	return f.record("unsafe_behaviour", len(r))
}

func (f *fakeAPI) BatchCreateRawSensorData(_ context.Context, r []syncapi.RawSensorDataCreate) error {
	f.samples = append(f.samples, r...)
	return f.record("raw_sensor_data", len(r))
}

func (f *fakeAPI) BatchCreateAIModelInputs(_ context.Context, r []syncapi.AIModelInputCreate) error {
	return f.record("ai_model_input", len(r))
}

func (f *fakeAPI) BatchCreateReportStatistics(_ context.Context, r []syncapi.ReportStatisticsCreate) error {
	f.reports = append(f.reports, r...)
	return f.record("report_statistics", len(r))
}

// fakeRecorder captures metrics calls
type fakeRecorder struct {
	runs    []string
	stages  []string
	cleanup int
}

func (r *fakeRecorder) RecordRun(result, reason string, _ time.Duration) {
	r.runs = append(r.runs, result+"/"+reason)
}

func (r *fakeRecorder) RecordStage(kind string, _, _ int, failed bool, _ time.Duration) {
	r.stages = append(r.stages, fmt.Sprintf("%s:%t", kind, failed))
}

func (r *fakeRecorder) RecordCleanup(datastore.KindCounts, bool) { r.cleanup++ }

func settings(batchSize int) *conf.SyncSettings {
	return &conf.SyncSettings{BatchSize: batchSize, DriverProfileID: "driver-1"}
}

func seedAll(t *testing.T, store *datastore.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.Locations.Create(ctx, testutil.Locations(3, false, false)...))
	require.NoError(t, store.UnsafeBehaviours.Create(ctx,
		testutil.UnsafeBehaviour("ub-1", "loc-0000", false, false)))
	require.NoError(t, store.RawSensorData.Create(ctx,
		testutil.RawSensorData("rs-1", "loc-0001", "trip-1", false, false),
		testutil.RawSensorData("rs-2", "loc-0002", "trip-1", false, false)))
	require.NoError(t, store.AIModelInputs.Create(ctx,
		testutil.AIModelInput("ai-1", testutil.BaseTimestamp, false, false)))
	require.NoError(t, store.ReportStatistics.Create(ctx,
		testutil.ReportStatistics("rep-1", nil, false, false)))
}

func TestRunSuccess(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seedAll(t, store)
	api := newFakeAPI()
	rec := &fakeRecorder{}

	var titles []string
	notifier := notification.NotifierFunc(func(title, _ string) { titles = append(titles, title) })

	report := New(store, api, connectivity.Static(true), settings(500),
		WithNotifier(notifier), WithRecorder(rec)).Run(context.Background())

	require.Equal(t, ResultSuccess, report.Result, "err: %v", report.Err)
	assert.Equal(t, ReasonNone, report.Reason)
	assert.Equal(t, []string{"location", "unsafe_behaviour", "raw_sensor_data", "ai_model_input", "report_statistics"}, api.calls)
	assert.Equal(t, 8, report.Uploaded())
	assert.Equal(t, []string{TitleLocations, TitleUnsafeBehaviours, TitleSensorData, TitleAIModelInputs, TitleReportStatistics}, titles)

	unsynced, _, err := store.Status(context.Background())
	require.NoError(t, err)
	for _, kind := range datastore.Kinds {
		assert.Zerof(t, unsynced[kind], "%s still unsynced", kind)
	}

	// Nothing is processed yet, and every location is referenced only by
	// synced records, so cleanup reclaims the locations alone
	require.NotNil(t, report.Cleanup)
	assert.Equal(t, int64(3), report.Cleanup.Deleted[datastore.KindLocation])
	assert.Zero(t, report.Cleanup.Deleted[datastore.KindRawSensorData])

	assert.Equal(t, []string{"success/"}, rec.runs)
	assert.Len(t, rec.stages, 5)
	assert.Equal(t, 1, rec.cleanup)
	assert.Equal(t, "driver-1", api.samples[0].DriverProfileID)
}

func TestRunWithoutConnectivityReadsNothing(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	api := newFakeAPI()
	notified := 0
	report := New(datastore.New(db), api, connectivity.Static(false), settings(500),
		WithNotifier(notification.NotifierFunc(func(string, string) { notified++ }))).Run(context.Background())

	assert.Equal(t, ResultRetryLater, report.Result)
	assert.Equal(t, ReasonConnectivityUnavailable, report.Reason)
	assert.ErrorIs(t, report.Err, connectivity.ErrUnavailable)
	assert.Empty(t, api.calls)
	assert.Zero(t, notified)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query was issued")
}

func TestRunStopsAtFirstFailingStage(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seedAll(t, store)
	require.NoError(t, store.Locations.Create(context.Background(), testutil.Locations(6, true, true)[3:]...))

	api := newFakeAPI()
	api.failOn["unsafe_behaviour"] = 1

	report := New(store, api, connectivity.Static(true), settings(500)).Run(context.Background())

	assert.Equal(t, ResultRetryLater, report.Result)
	assert.Equal(t, ReasonBatchUploadFailure, report.Reason)
	assert.Equal(t, datastore.KindUnsafeBehaviour, report.FailedStage)
	assert.Equal(t, []string{"location", "unsafe_behaviour"}, api.calls, "later stages are not attempted")
	assert.Nil(t, report.Cleanup, "no cleanup after a failure")

	unsynced, _, err := store.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, unsynced[datastore.KindLocation], "committed stage stays synced")
	assert.Equal(t, int64(1), unsynced[datastore.KindUnsafeBehaviour])
	assert.Equal(t, int64(2), unsynced[datastore.KindRawSensorData])

	// Synced+processed locations seeded above are still present
	synced, err := store.Locations.FindSynced(context.Background())
	require.NoError(t, err)
	assert.Len(t, synced, 6)
}

func TestRunPartialStageCommitsAcceptedChunks(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	require.NoError(t, store.Locations.Create(context.Background(), testutil.Locations(1200, false, false)...))

	api := newFakeAPI()
	api.failOn["location"] = 2

	report := New(store, api, connectivity.Static(true), settings(500)).Run(context.Background())

	assert.Equal(t, ResultRetryLater, report.Result)
	assert.Equal(t, []int{500, 500}, api.sizes["location"])
	require.Len(t, report.Stages, 1)
	assert.Equal(t, 500, report.Stages[0].Uploaded)
	assert.Equal(t, 3, report.Stages[0].Chunks)

	unsynced, _, err := store.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(700), unsynced[datastore.KindLocation])

	// The first chunk holds the earliest timestamps
	assert.Equal(t, "loc-0000", api.locations[0].ID)
	assert.Equal(t, "loc-0499", api.locations[499].ID)
}

func TestRunRetryResumesFromUnsynced(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	require.NoError(t, store.Locations.Create(context.Background(), testutil.Locations(12, false, false)...))

	failing := newFakeAPI()
	failing.failOn["location"] = 2
	o := New(store, failing, connectivity.Static(true), settings(5))
	require.Equal(t, ResultRetryLater, o.Run(context.Background()).Result)

	api := newFakeAPI()
	report := New(store, api, connectivity.Static(true), settings(5)).Run(context.Background())
	require.Equal(t, ResultSuccess, report.Result)
	assert.Equal(t, []int{5, 2}, api.sizes["location"], "only the 7 unsynced locations are sent again")
}

// tiedLocations returns locations whose timestamps fall as the id rises,
// two locations per timestamp.
func tiedLocations(n int) []datastore.Location {
	locs := testutil.Locations(n, false, false)
	for i := range locs {
		locs[i].Timestamp = testutil.BaseTimestamp + int64((n-1-i)/2)*1000
	}
	return locs
}

func locationIDs(locs []syncapi.LocationCreate) []string {
	ids := make([]string, len(locs))
	for i, l := range locs {
		ids[i] = l.ID
	}
	return ids
}

func TestRunResumeKeepsUploadOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Uninterrupted run fixes the expected order
	refStore := testutil.OpenStore(t)
	require.NoError(t, refStore.Locations.Create(ctx, tiedLocations(12)...))
	ref := newFakeAPI()
	require.Equal(t, ResultSuccess, New(refStore, ref, connectivity.Static(true), settings(5)).Run(ctx).Result)
	want := locationIDs(ref.locations)
	require.Len(t, want, 12)
	assert.Equal(t, []string{"loc-0010", "loc-0011", "loc-0008", "loc-0009"}, want[:4],
		"timestamp ascending, ties by id")

	store := testutil.OpenStore(t)
	require.NoError(t, store.Locations.Create(ctx, tiedLocations(12)...))

	failing := newFakeAPI()
	failing.failOn["location"] = 2
	require.Equal(t, ResultRetryLater, New(store, failing, connectivity.Static(true), settings(5)).Run(ctx).Result)
	assert.Equal(t, want[:10], locationIDs(failing.locations), "both chunks were attempted in order")

	resumed := newFakeAPI()
	require.Equal(t, ResultSuccess, New(store, resumed, connectivity.Static(true), settings(5)).Run(ctx).Result)
	assert.Equal(t, []int{5, 2}, resumed.sizes["location"])
	assert.Equal(t, want[5:], locationIDs(resumed.locations))
}

func TestRunAfterSuccessUploadsNothing(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seedAll(t, store)

	first := New(store, newFakeAPI(), connectivity.Static(true), settings(500)).Run(context.Background())
	require.Equal(t, ResultSuccess, first.Result, "err: %v", first.Err)

	api := newFakeAPI()
	report := New(store, api, connectivity.Static(true), settings(500)).Run(context.Background())

	require.Equal(t, ResultSuccess, report.Result, "err: %v", report.Err)
	assert.Empty(t, api.calls)
	assert.Zero(t, report.Uploaded())
	require.Len(t, report.Stages, len(datastore.Kinds))
	for _, st := range report.Stages {
		assert.Zerof(t, st.Found, "%s found records", st.Kind)
		assert.Zerof(t, st.Chunks, "%s uploaded chunks", st.Kind)
	}
}

func TestWithPlanner(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)

	o := New(store, newFakeAPI(), connectivity.Static(true), settings(5))
	assert.NotNil(t, o.Planner())

	shared := cleanup.NewPlanner(store)
	o = New(store, newFakeAPI(), connectivity.Static(true), settings(5), WithPlanner(shared))
	assert.Same(t, shared, o.Planner())
}

func TestRunSkipsSamplesWithoutTrip(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	require.NoError(t, store.RawSensorData.Create(context.Background(),
		testutil.RawSensorData("rs-trip", "", "trip-1", false, false),
		testutil.RawSensorData("rs-orphan", "", "", false, false)))

	api := newFakeAPI()
	report := New(store, api, connectivity.Static(true), settings(500)).Run(context.Background())

	require.Equal(t, ResultSuccess, report.Result)
	require.Len(t, api.samples, 1)
	assert.Equal(t, "rs-trip", api.samples[0].ID)
	assert.Equal(t, 1, report.Stages[2].Skipped)

	left, err := store.RawSensorData.FindUnsynced(context.Background())
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "rs-orphan", left[0].ID)
}

func TestRunMissingDriverProfile(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seedAll(t, store)

	api := newFakeAPI()
	report := New(store, api, connectivity.Static(true), &conf.SyncSettings{BatchSize: 500}).Run(context.Background())

	assert.Equal(t, ResultRetryLater, report.Result)
	assert.Equal(t, ReasonMissingDriverProfile, report.Reason)
	assert.Equal(t, datastore.KindRawSensorData, report.FailedStage)
	assert.Equal(t, []string{"location", "unsafe_behaviour"}, api.calls)
}

func TestRunOrdersReportsByLastTripStart(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	require.NoError(t, store.ReportStatistics.Create(context.Background(),
		testutil.ReportStatistics("rep-late", testutil.Ptr(int64(3000)), false, false),
		testutil.ReportStatistics("rep-none", nil, false, false),
		testutil.ReportStatistics("rep-early", testutil.Ptr(int64(1000)), false, false)))

	api := newFakeAPI()
	require.Equal(t, ResultSuccess, New(store, api, connectivity.Static(true), settings(500)).Run(context.Background()).Result)

	ids := make([]string, len(api.reports))
	for i, r := range api.reports {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"rep-none", "rep-early", "rep-late"}, ids)
}

func TestRunCancelledBetweenStages(t *testing.T) {
	t.Parallel()
	store := testutil.OpenStore(t)
	seedAll(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	api := newFakeAPI()
	notifier := notification.NotifierFunc(func(title, _ string) {
		if title == TitleLocations {
			cancel()
		}
	})

	report := New(store, api, connectivity.Static(true), settings(500), WithNotifier(notifier)).Run(ctx)

	assert.Equal(t, ResultRetryLater, report.Result)
	assert.Equal(t, ReasonCancelled, report.Reason)
	assert.Equal(t, datastore.KindUnsafeBehaviour, report.FailedStage)
	assert.Equal(t, []string{"location"}, api.calls, "the in-flight chunk completes")

	unsynced, _, err := store.Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, unsynced[datastore.KindLocation])
}

func TestRunLocalCommitFailure(t *testing.T) {
	t.Parallel()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)

	loc := testutil.Locations(1, false, false)[0]
	mock.ExpectQuery("SELECT (.+) FROM `locations`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "latitude", "longitude", "timestamp", "date", "sync", "processed"}).
			AddRow(loc.ID, loc.Latitude, loc.Longitude, loc.Timestamp, loc.Date, false, false))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `locations`").WillReturnError(stderrors.New("disk I/O error"))
	mock.ExpectRollback()

	api := newFakeAPI()
	report := New(datastore.New(db), api, connectivity.Static(true), settings(500)).Run(context.Background())

	assert.Equal(t, ResultRetryLater, report.Result)
	assert.Equal(t, ReasonLocalStorageFailure, report.Reason)
	assert.Equal(t, datastore.KindLocation, report.FailedStage)
	assert.Equal(t, []string{"location"}, api.calls, "the upload itself was accepted")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"plain error", stderrors.New("boom"), ReasonBatchUploadFailure},
		{"cancelled", context.Canceled, ReasonCancelled},
		{"missing profile", ErrMissingDriverProfile, ReasonMissingDriverProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reasonFor(tt.err))
		})
	}
}
