// Package syncapi is the client of the remote batch-create endpoints.
package syncapi

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/httpclient"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// IdempotencyKeyHeader carries a key that is stable for identical chunks.
const IdempotencyKeyHeader = "Idempotency-Key"

// idempotencyNamespace scopes the UUIDv5 keys derived from chunk contents.
var idempotencyNamespace = uuid.MustParse("6f1c9a52-3e0b-5d4e-9b7a-2c8d1e4f5a60")

// endpoints maps each record kind to its batch-create path.
var endpoints = map[datastore.Kind]string{
	datastore.KindLocation:         "/api/locations/batch_create",
	datastore.KindUnsafeBehaviour:  "/api/unsafe_behaviours/batch_create",
	datastore.KindRawSensorData:    "/api/raw_sensor_data/batch_create",
	datastore.KindAIModelInput:     "/api/ai_model_inputs/batch_create",
	datastore.KindReportStatistics: "/api/report_statistics/batch_create",
}

// RequestObserver receives the outcome of every batch-create request.
// statusCode is 0 when no response was received.
type RequestObserver interface {
	ObserveRequest(kind string, statusCode int, duration time.Duration)
}

// API is the remote surface used by the sync stages.
type API interface {
	BatchCreateLocations(ctx context.Context, records []LocationCreate) error
	BatchCreateUnsafeBehaviours(ctx context.Context, records []UnsafeBehaviourCreate) error
	BatchCreateRawSensorData(ctx context.Context, records []RawSensorDataCreate) error
	BatchCreateAIModelInputs(ctx context.Context, records []AIModelInputCreate) error
	BatchCreateReportStatistics(ctx context.Context, records []ReportStatisticsCreate) error
}

// Client implements API over HTTP.
type Client struct {
	http     *httpclient.Client
	baseURL  string
	observer RequestObserver
	log      logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithObserver registers a request observer, e.g. the metrics collector.
func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// GetLogger returns the syncapi package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("syncapi")
}

// New creates a Client for the configured base URL. A configured token is
// sent as a bearer token on every request.
func New(settings *conf.APISettings, opts ...Option) *Client {
	headers := http.Header{"Accept": {"application/json"}}
	if settings.Token != "" {
		headers.Set("Authorization", "Bearer "+settings.Token)
	}

	c := &Client{
		baseURL: strings.TrimRight(settings.BaseURL, "/"),
		log:     GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.Timeout,
		UserAgent:      settings.UserAgent,
		Headers:        headers,
	})
	return c
}

// HTTPClient exposes the underlying http.Client, e.g. for httpmock.
func (c *Client) HTTPClient() *http.Client {
	return c.http.HTTPClient()
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.Close()
}

func (c *Client) BatchCreateLocations(ctx context.Context, records []LocationCreate) error {
	return batchCreate(ctx, c, datastore.KindLocation, records)
}

func (c *Client) BatchCreateUnsafeBehaviours(ctx context.Context, records []UnsafeBehaviourCreate) error {
	return batchCreate(ctx, c, datastore.KindUnsafeBehaviour, records)
}

func (c *Client) BatchCreateRawSensorData(ctx context.Context, records []RawSensorDataCreate) error {
	return batchCreate(ctx, c, datastore.KindRawSensorData, records)
}

func (c *Client) BatchCreateAIModelInputs(ctx context.Context, records []AIModelInputCreate) error {
	return batchCreate(ctx, c, datastore.KindAIModelInput, records)
}

func (c *Client) BatchCreateReportStatistics(ctx context.Context, records []ReportStatisticsCreate) error {
	return batchCreate(ctx, c, datastore.KindReportStatistics, records)
}

type wireRecord interface {
	recordID() string
}

// batchCreate posts one chunk. Any transport error or non-2xx status is a
// batch upload failure.
func batchCreate[W wireRecord](ctx context.Context, c *Client, kind datastore.Kind, records []W) error {
	endpoint := c.baseURL + endpoints[kind]
	key := IdempotencyKey(kind, records)

	start := time.Now()
	resp, err := c.http.PostWithHeaders(ctx, endpoint, "application/json", records,
		http.Header{IdempotencyKeyHeader: {key}})
	if err != nil {
		c.observe(kind, 0, start)
		return errors.New(err).
			Component("syncapi").
			Category(errors.CategoryBatchUpload).
			Context("kind", string(kind)).
			Context("records", len(records)).
			Context("idempotency_key", key).
			NetworkContext(endpoint, 0).
			Build()
	}

	c.observe(kind, resp.StatusCode, start)
	if err := httpclient.CheckStatus(resp); err != nil {
		return errors.New(err).
			Component("syncapi").
			Category(errors.CategoryBatchUpload).
			Context("kind", string(kind)).
			Context("records", len(records)).
			Context("status_code", resp.StatusCode).
			Context("idempotency_key", key).
			Build()
	}

	c.log.Debug("batch accepted",
		logger.String("kind", string(kind)),
		logger.Int("records", len(records)),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))
	return nil
}

func (c *Client) observe(kind datastore.Kind, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(string(kind), status, time.Since(start))
	}
}

// IdempotencyKey derives a UUIDv5 from the kind and the sorted record ids, so
// a retried chunk with the same records carries the same key.
func IdempotencyKey[W wireRecord](kind datastore.Kind, records []W) string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.recordID()
	}
	slices.Sort(ids)
	return uuid.NewSHA1(idempotencyNamespace, []byte(string(kind)+"\n"+strings.Join(ids, "\n"))).String()
}
