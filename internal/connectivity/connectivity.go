// Package connectivity decides whether a usable internet-capable network is active.
package connectivity

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/patrickmn/go-cache"
	psnet "github.com/shirou/gopsutil/v3/net"

	"github.com/safedriveafrica/drivesync/internal/conf"
	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/httpclient"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

const cacheKey = "available"

// ErrUnavailable is the cause attached to runs skipped for lack of connectivity.
var ErrUnavailable = errors.NewStd("no usable network connection")

// Guard reports whether the network is usable. It must not block for long;
// implementations bound any probing with their own timeout.
type Guard interface {
	Available(ctx context.Context) bool
}

// Static is a Guard with a fixed answer, used for tests and the --offline flag.
type Static bool

// Available returns the fixed answer.
func (s Static) Available(context.Context) bool { return bool(s) }

// InterfaceLister lists network interfaces; gopsutil's implementation by default.
type InterfaceLister func(ctx context.Context) (psnet.InterfaceStatList, error)

// Checker combines an interface check and an optional HTTP probe, caching the
// combined answer for the configured TTL.
type Checker struct {
	requireInterface bool
	probeURL         string
	probeTimeout     time.Duration

	listInterfaces InterfaceLister
	probe          *httpclient.Client
	cache          *cache.Cache // nil when caching is disabled
	log            logger.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithInterfaceLister replaces the gopsutil interface lister.
func WithInterfaceLister(l InterfaceLister) Option {
	return func(c *Checker) { c.listInterfaces = l }
}

// WithProbeTransport replaces the probe's HTTP transport.
func WithProbeTransport(rt http.RoundTripper) Option {
	return func(c *Checker) {
		c.probe = httpclient.New(&httpclient.Config{
			DefaultTimeout: c.probeTimeout,
			Transport:      rt,
		})
	}
}

// GetLogger returns the connectivity package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("connectivity")
}

// NewChecker creates a Checker from settings.
func NewChecker(settings *conf.ConnectivitySettings, opts ...Option) *Checker {
	c := &Checker{
		requireInterface: settings.RequireInterface,
		probeURL:         settings.ProbeURL,
		probeTimeout:     settings.ProbeTimeout,
		listInterfaces:   psnet.InterfacesWithContext,
		log:              GetLogger(),
	}
	if settings.CacheTTL > 0 {
		// No janitor: expired entries are ignored on Get
		c.cache = cache.New(settings.CacheTTL, 0)
	}
	if c.probeURL != "" {
		c.probe = httpclient.New(&httpclient.Config{DefaultTimeout: c.probeTimeout})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether a usable network is active.
func (c *Checker) Available(ctx context.Context) bool {
	if c.cache != nil {
		if v, ok := c.cache.Get(cacheKey); ok {
			return v.(bool)
		}
	}

	available := c.check(ctx)

	if c.cache != nil {
		c.cache.SetDefault(cacheKey, available)
	}
	return available
}

// Invalidate drops the cached answer.
func (c *Checker) Invalidate() {
	if c.cache != nil {
		c.cache.Delete(cacheKey)
	}
}

func (c *Checker) check(ctx context.Context) bool {
	if c.requireInterface {
		up, err := c.hasActiveInterface(ctx)
		if err != nil {
			c.log.Warn("failed to list network interfaces", logger.Error(err))
			return false
		}
		if !up {
			c.log.Debug("no active non-loopback network interface")
			return false
		}
	}

	if c.probe == nil || c.probeURL == "" {
		return true
	}
	return c.probeOK(ctx)
}

// hasActiveInterface reports whether any non-loopback interface is up and has an address.
func (c *Checker) hasActiveInterface(ctx context.Context) (bool, error) {
	ifaces, err := c.listInterfaces(ctx)
	if err != nil {
		return false, errors.New(err).
			Component("connectivity").
			Category(errors.CategorySystem).
			Context("operation", "list_interfaces").
			Build()
	}
	for _, iface := range ifaces {
		if !slices.Contains(iface.Flags, "up") || slices.Contains(iface.Flags, "loopback") {
			continue
		}
		if len(iface.Addrs) > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (c *Checker) probeOK(ctx context.Context) bool {
	probeCtx := ctx
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	resp, err := c.probe.Get(probeCtx, c.probeURL)
	if err != nil {
		c.log.Debug("connectivity probe failed", logger.Error(err))
		return false
	}
	if err := httpclient.CheckStatus(resp); err != nil {
		c.log.Debug("connectivity probe rejected", logger.Error(err))
		return false
	}
	return true
}
