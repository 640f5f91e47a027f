package syncapi

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/errors"
)

const testBaseURL = "https://api.example.test"

type recordingObserver struct {
	mu       sync.Mutex
	statuses []int
}

func (o *recordingObserver) ObserveRequest(_ string, statusCode int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, statusCode)
}

func newMockedClient(t *testing.T, token string, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()
	client := New(&conf.APISettings{
		BaseURL:   testBaseURL + "/",
		Token:     token,
		Timeout:   time.Second,
		UserAgent: "drivesync-test",
	}, opts...)
	mt := httpmock.NewMockTransport()
	client.HTTPClient().Transport = mt
	t.Cleanup(client.Close)
	return client, mt
}

func TestBatchCreateLocationsSendsChunk(t *testing.T) {
	t.Parallel()
	client, mt := newMockedClient(t, "secret-token")

	records := []LocationCreate{
		{ID: "b", Latitude: 1, Longitude: 2, Timestamp: 20, Date: "2025-03-14", Sync: true},
		{ID: "a", Latitude: 3, Longitude: 4, Timestamp: 10, Date: "2025-03-14", Sync: true},
	}

	mt.RegisterResponder(http.MethodPost, testBaseURL+"/api/locations/batch_create",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer secret-token", req.Header.Get("Authorization"))
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, "drivesync-test", req.Header.Get("User-Agent"))
			assert.Equal(t, IdempotencyKey(datastore.KindLocation, records), req.Header.Get(IdempotencyKeyHeader))

			var got []map[string]any
			require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
			require.Len(t, got, 2)
			assert.Equal(t, "b", got[0]["id"], "order is preserved")
			assert.Equal(t, "2025-03-14", got[0]["date"])
			assert.Equal(t, true, got[0]["sync"])
			return httpmock.NewStringResponse(http.StatusCreated, `{"message":"2 Location records created."}`), nil
		})

	require.NoError(t, client.BatchCreateLocations(t.Context(), records))
	assert.Equal(t, 1, mt.GetTotalCallCount())
}

func TestBatchCreateWithoutTokenSendsNoAuthorization(t *testing.T) {
	t.Parallel()
	client, mt := newMockedClient(t, "")

	mt.RegisterResponder(http.MethodPost, testBaseURL+"/api/ai_model_inputs/batch_create",
		func(req *http.Request) (*http.Response, error) {
			assert.Empty(t, req.Header.Get("Authorization"))
			return httpmock.NewStringResponse(http.StatusOK, "{}"), nil
		})

	require.NoError(t, client.BatchCreateAIModelInputs(t.Context(), []AIModelInputCreate{{ID: "x"}}))
}

func TestBatchCreateRejectedStatusIsBatchUploadFailure(t *testing.T) {
	t.Parallel()
	observer := &recordingObserver{}
	client, mt := newMockedClient(t, "", WithObserver(observer))

	mt.RegisterResponder(http.MethodPost, testBaseURL+"/api/raw_sensor_data/batch_create",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"detail":"Trip ID is required for driver uploads."}`))

	err := client.BatchCreateRawSensorData(t.Context(), []RawSensorDataCreate{{ID: "r1"}})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBatchUpload))

	var ee *errors.EnhancedError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, http.StatusBadRequest, ee.GetContext()["status_code"])
	assert.Equal(t, "raw_sensor_data", ee.GetContext()["kind"])
	assert.Equal(t, []int{http.StatusBadRequest}, observer.statuses)
}

func TestBatchCreateTransportErrorIsBatchUploadFailure(t *testing.T) {
	t.Parallel()
	observer := &recordingObserver{}
	client, mt := newMockedClient(t, "", WithObserver(observer))

	mt.RegisterResponder(http.MethodPost, testBaseURL+"/api/report_statistics/batch_create",
		httpmock.NewErrorResponder(stderrors.New("connection reset by peer")))

	err := client.BatchCreateReportStatistics(t.Context(), []ReportStatisticsCreate{{ID: "s1"}})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryBatchUpload))
	assert.Equal(t, []int{0}, observer.statuses)
}

func TestEveryKindHasEndpoint(t *testing.T) {
	t.Parallel()
	client, mt := newMockedClient(t, "")
	for _, kind := range datastore.Kinds {
		mt.RegisterResponder(http.MethodPost, testBaseURL+endpoints[kind],
			httpmock.NewStringResponder(http.StatusCreated, "{}"))
	}

	ctx := t.Context()
	require.NoError(t, client.BatchCreateLocations(ctx, []LocationCreate{{ID: "1"}}))
	require.NoError(t, client.BatchCreateUnsafeBehaviours(ctx, []UnsafeBehaviourCreate{{ID: "1"}}))
	require.NoError(t, client.BatchCreateRawSensorData(ctx, []RawSensorDataCreate{{ID: "1"}}))
	require.NoError(t, client.BatchCreateAIModelInputs(ctx, []AIModelInputCreate{{ID: "1"}}))
	require.NoError(t, client.BatchCreateReportStatistics(ctx, []ReportStatisticsCreate{{ID: "1"}}))

	assert.Len(t, endpoints, len(datastore.Kinds))
	info := mt.GetCallCountInfo()
	for _, kind := range datastore.Kinds {
		assert.Equal(t, 1, info["POST "+testBaseURL+endpoints[kind]], "kind %s", kind)
	}
}

func TestIdempotencyKeyIsOrderIndependent(t *testing.T) {
	t.Parallel()

	a := []LocationCreate{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	b := []LocationCreate{{ID: "3"}, {ID: "1"}, {ID: "2"}}
	c := []LocationCreate{{ID: "1"}, {ID: "2"}}

	assert.Equal(t, IdempotencyKey(datastore.KindLocation, a), IdempotencyKey(datastore.KindLocation, b))
	assert.NotEqual(t, IdempotencyKey(datastore.KindLocation, a), IdempotencyKey(datastore.KindLocation, c))

	ub := []UnsafeBehaviourCreate{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	assert.NotEqual(t, IdempotencyKey(datastore.KindLocation, a), IdempotencyKey(datastore.KindUnsafeBehaviour, ub),
		"keys are scoped by kind")
}
