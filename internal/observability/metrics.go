// Package observability provides Prometheus metrics functionality for monitoring drivesync.
// Sentry error telemetry is handled in the errors package.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safedriveafrica/drivesync/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry     *prometheus.Registry
	Sync         *metrics.SyncMetrics
	Notification *metrics.NotificationMetrics
}

// NewMetrics creates a new instance of Metrics with its own registry,
// including the Go runtime and process collectors.
// It returns an error if any metric collector fails to initialize.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	syncMetrics, err := metrics.NewSyncMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Sync:     syncMetrics,
	}, nil
}

// RegisterNotificationSource exports the counters of the notification service.
func (m *Metrics) RegisterNotificationSource(source metrics.NotificationSource) error {
	nm, err := metrics.NewNotificationMetrics(m.registry, source)
	if err != nil {
		return fmt.Errorf("failed to create notification metrics: %w", err)
	}
	m.Notification = nm
	return nil
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}
