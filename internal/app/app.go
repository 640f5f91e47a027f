// Package app assembles the components shared by the command-line entry
// points: store, remote client, connectivity gate, notifications, metrics and
// the sync orchestrator.
package app

import (
	"context"
	"fmt"

	"github.com/safedriveafrica/drivesync/internal/cleanup"
	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/connectivity"
	"github.com/safedriveafrica/drivesync/internal/datastore"
	"github.com/safedriveafrica/drivesync/internal/logger"
	"github.com/safedriveafrica/drivesync/internal/notification"
	"github.com/safedriveafrica/drivesync/internal/observability"
	syncjob "github.com/safedriveafrica/drivesync/internal/sync"
	"github.com/safedriveafrica/drivesync/internal/syncapi"
)

// ExitTempFail is the sysexits code for RetryLater; schedulers retry on it.
const ExitTempFail = 75

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Options select optional components.
type Options struct {
	// Offline replaces the connectivity checker with a gate that is always closed.
	Offline bool
	// Metrics creates the Prometheus registry and wires it into the client,
	// the orchestrator and the notification service.
	Metrics bool
}

// App owns the long-lived components of one process.
type App struct {
	Settings      *conf.Settings
	Store         *datastore.Store
	Client        *syncapi.Client
	Guard         connectivity.Guard
	Notifications *notification.Service
	Metrics       *observability.Metrics
	Orchestrator  *syncjob.Orchestrator
	Planner       *cleanup.Planner

	log logger.Logger
}

// GetLogger returns the app package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// New opens the store and builds every component. Components opened before a
// failure are closed again.
func New(ctx context.Context, settings *conf.Settings, opts Options) (_ *App, err error) {
	a := &App{Settings: settings, log: GetLogger()}
	defer func() {
		if err != nil {
			a.Close(ctx)
		}
	}()

	if opts.Metrics {
		if a.Metrics, err = observability.NewMetrics(); err != nil {
			return nil, fmt.Errorf("error creating metrics: %w", err)
		}
	}

	if a.Store, err = datastore.Open(ctx, &settings.Datastore); err != nil {
		return nil, err
	}
	a.Planner = cleanup.NewPlanner(a.Store)

	var clientOpts []syncapi.Option
	if a.Metrics != nil {
		clientOpts = append(clientOpts, syncapi.WithObserver(a.Metrics.Sync))
	}
	a.Client = syncapi.New(&settings.API, clientOpts...)

	if opts.Offline {
		a.Guard = connectivity.Static(false)
	} else {
		a.Guard = connectivity.NewChecker(&settings.Connectivity)
	}

	if a.Notifications, err = notification.NewFromSettings(ctx, &settings.Notification); err != nil {
		return nil, err
	}

	orchestratorOpts := []syncjob.Option{
		syncjob.WithNotifier(a.Notifications),
		syncjob.WithPlanner(a.Planner),
	}
	if a.Metrics != nil {
		if err = a.Metrics.RegisterNotificationSource(a.Notifications); err != nil {
			return nil, fmt.Errorf("error registering notification metrics: %w", err)
		}
		orchestratorOpts = append(orchestratorOpts, syncjob.WithRecorder(a.Metrics.Sync))
	}
	a.Orchestrator = syncjob.New(a.Store, a.Client, a.Guard, &settings.Sync, orchestratorOpts...)

	return a, nil
}

// Close drains pending notifications within ctx and releases the store and
// the HTTP connection pool. Safe on a partially built App.
func (a *App) Close(ctx context.Context) {
	if a.Notifications != nil {
		if err := a.Notifications.Close(ctx); err != nil {
			a.log.Warn("notifications not fully delivered", logger.Error(err))
		}
	}
	if a.Client != nil {
		a.Client.Close()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.log.Warn("error closing datastore", logger.Error(err))
		}
	}
}
