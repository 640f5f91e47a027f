package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationSource exposes the delivery counters of the notification service.
type NotificationSource interface {
	Dropped() int64
	Failed() int64
}

// NotificationMetrics exports the counters of a NotificationSource. Values
// are read at scrape time.
type NotificationMetrics struct {
	NotificationsDroppedTotal prometheus.CounterFunc // Dropped because the queue was full
	DeliveryErrorsTotal       prometheus.CounterFunc // Failed provider sends
}

// NewNotificationMetrics creates and registers the notification counters.
func NewNotificationMetrics(registry *prometheus.Registry, source NotificationSource) (*NotificationMetrics, error) {
	m := &NotificationMetrics{
		NotificationsDroppedTotal: prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "drivesync_notifications_dropped_total",
				Help: "Total number of progress notifications dropped because the queue was full",
			},
			func() float64 { return float64(source.Dropped()) },
		),
		DeliveryErrorsTotal: prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "drivesync_notification_delivery_errors_total",
				Help: "Total number of failed notification provider sends",
			},
			func() float64 { return float64(source.Failed()) },
		),
	}

	for _, c := range []prometheus.Collector{m.NotificationsDroppedTotal, m.DeliveryErrorsTotal} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register notification metrics: %w", err)
		}
	}
	return m, nil
}
