package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	mw "github.com/safedriveafrica/drivesync/internal/api/middleware"
	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/logger"
	"github.com/safedriveafrica/drivesync/internal/observability"
	syncjob "github.com/safedriveafrica/drivesync/internal/sync"
)

// retryAfterSeconds is suggested to schedulers when a run returns RetryLater.
const retryAfterSeconds = 60

// Runner performs one sync run.
type Runner interface {
	Run(ctx context.Context) *syncjob.Report
}

// StatusReader reports per-kind backlog counts.
type StatusReader interface {
	Status(ctx context.Context) (unsynced, cleanable datastore.KindCounts, err error)
}

// Server is the control HTTP server. At most one sync run is active at a time;
// a trigger while a run is active is answered with 409 Conflict.
type Server struct {
	echo    *echo.Echo
	config  *Config
	runner  Runner
	status  StatusReader
	metrics *observability.Metrics
	log     logger.Logger

	guard      *semaphore.Weighted
	active     atomic.Bool
	lastReport atomic.Pointer[syncjob.Report]

	// Lifecycle management
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithMetrics serves /metrics and updates backlog gauges on status reads.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a new HTTP server with the given configuration and options.
func New(config *Config, runner Runner, status StatusReader, opts ...ServerOption) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:    config,
		runner:    runner,
		status:    status,
		log:       GetLogger(),
		guard:     semaphore.NewWeighted(1),
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo = echo.New()
	s.echo.Logger = logger.NewEchoLoggerAdapter(s.log.Module("echo"))
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	var skipper echomw.Skipper
	if !s.config.Debug {
		skipper = mw.SkipPaths("/healthz", "/metrics")
	}
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, skipper))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders())
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthCheck)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/sync", s.triggerSync)
	v1.GET("/sync/last", s.lastSync)
	v1.GET("/status", s.getStatus)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// triggerSync starts a run. By default the run continues in the background
// and 202 is returned; with wait=true the response carries the report, with
// 503 and Retry-After when the result is RetryLater.
func (s *Server) triggerSync(c echo.Context) error {
	wait, _ := strconv.ParseBool(c.QueryParam("wait"))

	if !s.guard.TryAcquire(1) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "sync already running"})
	}
	s.active.Store(true)

	if !wait {
		s.wg.Go(func() {
			defer s.release()
			s.run(s.ctx)
		})
		return c.JSON(http.StatusAccepted, map[string]string{"status": "started"})
	}

	defer s.release()
	report := s.run(c.Request().Context())
	if report.Result == syncjob.ResultRetryLater {
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		return c.JSON(http.StatusServiceUnavailable, report)
	}
	return c.JSON(http.StatusOK, report)
}

// release clears the running flag before freeing the guard so a status read
// never reports idle while a new run holds it.
func (s *Server) release() {
	s.active.Store(false)
	s.guard.Release(1)
}

func (s *Server) run(ctx context.Context) *syncjob.Report {
	report := s.runner.Run(ctx)
	s.lastReport.Store(report)
	return report
}

// lastSync returns the report of the most recent run.
func (s *Server) lastSync(c echo.Context) error {
	report := s.lastReport.Load()
	if report == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no sync has run yet"})
	}
	return c.JSON(http.StatusOK, report)
}

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Running   bool                 `json:"running"`
	Unsynced  datastore.KindCounts `json:"unsynced"`
	Cleanable datastore.KindCounts `json:"cleanable"`
}

func (s *Server) getStatus(c echo.Context) error {
	unsynced, cleanable, err := s.status.Status(c.Request().Context())
	if err != nil {
		s.log.Error("status query failed", logger.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "status unavailable"})
	}
	if s.metrics != nil {
		s.metrics.Sync.SetPending(unsynced)
	}

	return c.JSON(http.StatusOK, StatusResponse{
		Running:   s.active.Load(),
		Unsynced:  unsynced,
		Cleanable: cleanable,
	})
}

// Handler returns the HTTP handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves HTTP requests until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("control server starting", logger.String("address", s.config.Listen))
	if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, cancels a background run between
// chunks and waits for it to return.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	err := s.echo.Shutdown(ctx)
	s.cancel()
	s.wg.Wait()

	if err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.log.Info("control server stopped")
	return nil
}
