package notification

import (
	"context"

	"github.com/safedriveafrica/drivesync/internal/logger"
)

// LogProvider writes notifications to the application log.
type LogProvider struct {
	enabled bool
	log     logger.Logger
}

// NewLogProvider creates a LogProvider using the notification module logger.
func NewLogProvider(enabled bool) *LogProvider {
	return &LogProvider{enabled: enabled, log: GetLogger()}
}

func (p *LogProvider) GetName() string        { return "log" }
func (p *LogProvider) IsEnabled() bool        { return p.enabled }
func (p *LogProvider) SupportsType(Type) bool { return true }
func (p *LogProvider) ValidateConfig() error  { return nil }

func (p *LogProvider) Send(_ context.Context, n *Notification) error {
	fields := []logger.Field{
		logger.String("title", n.Title),
		logger.String("type", string(n.Type)),
	}
	if n.Type == TypeWarning {
		p.log.Warn(n.Message, fields...)
		return nil
	}
	p.log.Info(n.Message, fields...)
	return nil
}
