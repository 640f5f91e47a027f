package telemetry

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/errors"
)

func TestInitSentryDisabled(t *testing.T) {
	require.NoError(t, InitSentry(&conf.SentrySettings{}, "test"))
	assert.Nil(t, errors.GetTelemetryReporter())
	assert.True(t, Flush(context.Background()))
}

func TestInitSentryReportsEnhancedErrors(t *testing.T) {
	transport := NewMockTransport()
	t.Cleanup(func() { errors.SetTelemetryReporter(nil) })

	err := initSentry(&conf.SentrySettings{
		Enabled: true,
		DSN:     "https://public@sentry.example.com/1",
	}, "1.0.0", transport)
	require.NoError(t, err)
	require.NotNil(t, errors.GetTelemetryReporter())

	_ = errors.New(stderrors.New("database is locked")).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", "update").
		Build()

	require.True(t, Flush(context.Background()))
	events := transport.GetEvents()
	require.NotEmpty(t, events)
	assert.Contains(t, events[0].Message, "database is locked")
	assert.Equal(t, "drivesync@1.0.0", events[0].Release)
	assert.Empty(t, events[0].ServerName)
}

func TestInitSentryInvalidDSN(t *testing.T) {
	err := InitSentry(&conf.SentrySettings{Enabled: true, DSN: "not a dsn"}, "test")
	require.Error(t, err)
}
