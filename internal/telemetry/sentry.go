// Package telemetry initialises optional Sentry error reporting. Enhanced
// errors built by the errors package are forwarded once it is enabled.
package telemetry

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// flushTimeout bounds how long pending events are sent on shutdown.
const flushTimeout = 2 * time.Second

// GetLogger returns the telemetry package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry initialises Sentry when enabled in settings and registers the
// error reporter. It is a no-op when Sentry is disabled.
func InitSentry(settings *conf.SentrySettings, version string) error {
	return initSentry(settings, version, nil)
}

func initSentry(settings *conf.SentrySettings, version string, transport sentry.Transport) error {
	if !settings.Enabled {
		GetLogger().Debug("sentry telemetry is disabled")
		return nil
	}

	environment := settings.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.DSN,
		SampleRate: 1.0,

		// Privacy-compliant settings
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "", // Explicitly clear server name to prevent hostname leakage
		Release:          fmt.Sprintf("drivesync@%s", version),
		Transport:        transport,

		BeforeSend: beforeSend,
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":    "drivesync",
			"version": version,
		})
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	GetLogger().Info("sentry telemetry enabled", logger.String("environment", environment))
	return nil
}

// beforeSend drops request data and user identity that could carry tokens or
// driver identifiers.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.Request = nil
	event.User = sentry.User{}
	event.ServerName = ""
	return event
}

// Flush sends pending events, waiting at most until ctx is done or the flush
// timeout elapses.
func Flush(ctx context.Context) bool {
	if errors.GetTelemetryReporter() == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	return sentry.FlushWithContext(ctx)
}
