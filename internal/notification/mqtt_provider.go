package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

const (
	mqttConnectTimeout    = 30 * time.Second
	mqttPublishTimeout    = 10 * time.Second
	mqttDisconnectQuiesce = 250 // milliseconds
)

// MQTTProvider publishes notifications as JSON to a broker topic.
type MQTTProvider struct {
	settings conf.MQTTNotifySettings
	types    map[Type]bool

	mu     sync.Mutex
	client mqtt.Client
	log    logger.Logger
}

// NewMQTTProvider creates an MQTTProvider. The broker connection is opened by Connect.
func NewMQTTProvider(settings *conf.MQTTNotifySettings) *MQTTProvider {
	return &MQTTProvider{
		settings: *settings,
		types:    supportedTypes(nil),
		log:      GetLogger().Module("mqtt"),
	}
}

func (p *MQTTProvider) GetName() string          { return "mqtt" }
func (p *MQTTProvider) IsEnabled() bool          { return p.settings.Enabled }
func (p *MQTTProvider) SupportsType(t Type) bool { return p.types[t] }

func (p *MQTTProvider) ValidateConfig() error {
	if !p.settings.Enabled {
		return nil
	}
	u, err := url.Parse(p.settings.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts":
	default:
		return fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if p.settings.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if p.settings.QoS < 0 || p.settings.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	return nil
}

// Connect opens the broker connection. Reconnects are handled by the client.
func (p *MQTTProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.settings.Broker)
	opts.SetClientID(p.settings.ClientID)
	opts.SetUsername(p.settings.Username)
	opts.SetPassword(p.settings.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		p.log.Warn("connection to broker lost", logger.Error(err))
	})

	p.client = mqtt.NewClient(opts)

	timeout := mqttConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	token := p.client.Connect()
	if !token.WaitTimeout(timeout) {
		return mqttError(fmt.Errorf("connection timeout"), "connect")
	}
	if err := token.Error(); err != nil {
		return mqttError(err, "connect")
	}
	p.log.Info("connected to broker", logger.String("topic", p.settings.Topic))
	return nil
}

func (p *MQTTProvider) Send(_ context.Context, n *Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil || !p.client.IsConnected() {
		return mqttError(fmt.Errorf("not connected to MQTT broker"), "publish")
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return mqttError(err, "marshal")
	}

	token := p.client.Publish(p.settings.Topic, byte(p.settings.QoS), p.settings.Retain, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return mqttError(fmt.Errorf("publish timeout"), "publish")
	}
	if err := token.Error(); err != nil {
		return mqttError(err, "publish")
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil && p.client.IsConnected() {
		p.client.Disconnect(mqttDisconnectQuiesce)
	}
}

func mqttError(err error, operation string) error {
	return errors.New(err).
		Component("notification").
		Category(errors.CategoryMQTTPublish).
		Context("provider", "mqtt").
		Context("operation", operation).
		Build()
}
