package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/errors"
)

func TestShoutrrrProviderValidateConfig(t *testing.T) {
	t.Run("disabled needs nothing", func(t *testing.T) {
		p := NewShoutrrrProvider(false, nil, nil, time.Second)
		assert.NoError(t, p.ValidateConfig())
	})

	t.Run("enabled requires urls", func(t *testing.T) {
		p := NewShoutrrrProvider(true, nil, nil, time.Second)
		assert.Error(t, p.ValidateConfig())
	})

	t.Run("unknown service", func(t *testing.T) {
		p := NewShoutrrrProvider(true, []string{"notaservice://host/path"}, nil, time.Second)
		err := p.ValidateConfig()
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryNotification))
	})

	t.Run("generic webhook", func(t *testing.T) {
		p := NewShoutrrrProvider(true, []string{"generic://example.test/hook"}, []string{"warning"}, time.Second)
		require.NoError(t, p.ValidateConfig())
		assert.True(t, p.SupportsType(TypeWarning))
		assert.False(t, p.SupportsType(TypeProgress))
	})
}

func TestShoutrrrProviderSendWithoutSender(t *testing.T) {
	p := NewShoutrrrProvider(true, []string{"generic://example.test/hook"}, nil, time.Second)
	assert.Error(t, p.Send(context.Background(), NewNotification(TypeInfo, "t", "m")))
}

func TestMQTTProviderValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings conf.MQTTNotifySettings
		wantErr  bool
	}{
		{"disabled", conf.MQTTNotifySettings{}, false},
		{"valid", conf.MQTTNotifySettings{Enabled: true, Broker: "tcp://localhost:1883", Topic: "drivesync/n"}, false},
		{"bad scheme", conf.MQTTNotifySettings{Enabled: true, Broker: "http://localhost", Topic: "t"}, true},
		{"missing topic", conf.MQTTNotifySettings{Enabled: true, Broker: "tcp://localhost:1883"}, true},
		{"bad qos", conf.MQTTNotifySettings{Enabled: true, Broker: "tcp://localhost:1883", Topic: "t", QoS: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewMQTTProvider(&tt.settings).ValidateConfig()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMQTTProviderSendRequiresConnection(t *testing.T) {
	p := NewMQTTProvider(&conf.MQTTNotifySettings{Enabled: true, Broker: "tcp://localhost:1883", Topic: "t"})
	err := p.Send(context.Background(), NewNotification(TypeInfo, "t", "m"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
	p.Close()
}
