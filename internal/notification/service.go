package notification

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// DefaultQueueSize is used when the configured queue size is not positive.
const DefaultQueueSize = 64

// sendTimeout bounds a single provider send.
const sendTimeout = 15 * time.Second

// GetLogger returns the notification package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("notification")
}

type registeredProvider struct {
	provider Provider
	limited  bool
}

// Service queues notifications and delivers them from a single worker.
// Display never blocks: when the queue is full the notification is dropped.
type Service struct {
	providers []registeredProvider
	limiter   *rate.Limiter // nil disables rate limiting

	mu     sync.RWMutex
	closed bool
	queue  chan *Notification

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	dropped atomic.Int64
	failed  atomic.Int64
	log     logger.Logger
}

// Config holds dispatcher settings.
type Config struct {
	QueueSize     int
	RatePerSecond float64 // 0 disables rate limiting
	Burst         int
}

// NewService starts a dispatcher. Providers are added before the first Display.
func NewService(cfg Config) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		queue:  make(chan *Notification, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
		log:    GetLogger(),
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	s.wg.Add(1)
	go s.run()
	return s
}

// AddProvider registers an enabled provider. Limited providers share the
// service rate limit; local providers such as the log are not limited.
func (s *Service) AddProvider(p Provider, limited bool) {
	if !p.IsEnabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = append(s.providers, registeredProvider{provider: p, limited: limited})
}

// Display queues a progress notification.
func (s *Service) Display(title, message string) {
	s.Notify(NewNotification(TypeProgress, title, message).WithComponent("sync"))
}

// Notify queues a notification without blocking.
func (s *Service) Notify(n *Notification) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return
	}
	select {
	case s.queue <- n:
	default:
		s.dropped.Add(1)
		s.log.Debug("notification queue full, dropping", logger.String("title", n.Title))
	}
}

// Dropped returns the number of notifications dropped because the queue was full.
func (s *Service) Dropped() int64 { return s.dropped.Load() }

// Failed returns the number of failed provider sends.
func (s *Service) Failed() int64 { return s.failed.Load() }

func (s *Service) run() {
	defer s.wg.Done()
	for n := range s.queue {
		s.dispatch(n)
	}
}

func (s *Service) dispatch(n *Notification) {
	s.mu.RLock()
	providers := s.providers
	s.mu.RUnlock()

	for _, rp := range providers {
		if !rp.provider.SupportsType(n.Type) {
			continue
		}
		if rp.limited && s.limiter != nil {
			if err := s.limiter.Wait(s.ctx); err != nil {
				// Service is shutting down
				s.dropped.Add(1)
				continue
			}
		}

		ctx, cancel := context.WithTimeout(s.ctx, sendTimeout)
		err := rp.provider.Send(ctx, n)
		cancel()
		if err != nil {
			s.failed.Add(1)
			s.log.Warn("notification delivery failed",
				logger.String("provider", rp.provider.GetName()),
				logger.String("title", n.Title),
				logger.Error(err))
		}
	}
}

// Close stops accepting notifications and drains the queue. When ctx expires
// first, pending rate-limited sends are abandoned.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.cancel()
	<-done

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rp := range s.providers {
		if c, ok := rp.provider.(interface{ Close() }); ok {
			c.Close()
		}
	}
	return err
}

// NewFromSettings builds a Service with every provider enabled in settings.
// Provider configuration errors are returned; an MQTT broker that cannot be
// reached is logged and skipped.
func NewFromSettings(ctx context.Context, settings *conf.NotificationSettings) (*Service, error) {
	svc := NewService(Config{
		QueueSize:     settings.QueueSize,
		RatePerSecond: settings.RateLimit.PerSecond,
		Burst:         settings.RateLimit.Burst,
	})

	svc.AddProvider(NewLogProvider(settings.Log.Enabled), false)

	push := NewShoutrrrProvider(settings.Push.Enabled, settings.Push.URLs, nil, settings.Push.Timeout)
	if err := push.ValidateConfig(); err != nil {
		_ = svc.Close(ctx)
		return nil, err
	}
	svc.AddProvider(push, true)

	mqttProvider := NewMQTTProvider(&settings.MQTT)
	if err := mqttProvider.ValidateConfig(); err != nil {
		_ = svc.Close(ctx)
		return nil, err
	}
	if mqttProvider.IsEnabled() {
		if err := mqttProvider.Connect(ctx); err != nil {
			GetLogger().Warn("MQTT notifications disabled", logger.Error(err))
		} else {
			svc.AddProvider(mqttProvider, true)
		}
	}

	return svc, nil
}
