package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/safedriveafrica/drivesync/internal/errors"
	"github.com/safedriveafrica/drivesync/internal/logger"
)

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr.
// Creates a single sender for multiple URLs.
type ShoutrrrProvider struct {
	enabled bool
	urls    []string
	types   map[Type]bool
	sender  *router.ServiceRouter
	timeout time.Duration
}

func NewShoutrrrProvider(enabled bool, urls, types []string, timeout time.Duration) *ShoutrrrProvider {
	return &ShoutrrrProvider{
		enabled: enabled,
		urls:    slices.Clone(urls),
		types:   supportedTypes(types),
		timeout: timeout,
	}
}

func (s *ShoutrrrProvider) GetName() string          { return "shoutrrr" }
func (s *ShoutrrrProvider) IsEnabled() bool          { return s.enabled }
func (s *ShoutrrrProvider) SupportsType(t Type) bool { return s.types[t] }

func (s *ShoutrrrProvider) ValidateConfig() error {
	if !s.enabled {
		return nil
	}
	if len(s.urls) == 0 {
		return fmt.Errorf("at least one URL is required")
	}
	// Building the sender validates every URL
	sender, err := shoutrrr.CreateSender(s.urls...)
	if err != nil {
		return redactedError(err, "create_sender")
	}
	s.sender = sender
	if s.timeout > 0 {
		s.sender.Timeout = s.timeout
	}
	s.sender.SetLogger(log.New(io.Discard, "", 0))
	return nil
}

func (s *ShoutrrrProvider) Send(_ context.Context, n *Notification) error {
	if s.sender == nil {
		return fmt.Errorf("shoutrrr sender not initialized")
	}

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, e := range s.sender.Send(n.Message, &params) {
		if e != nil {
			return redactedError(e, "send")
		}
	}
	return nil
}

// redactedError strips tokens and credentials that service URLs embed in errors
func redactedError(err error, operation string) error {
	return errors.Newf("%s", logger.RedactSensitiveData(err.Error())).
		Component("notification").
		Category(errors.CategoryNotification).
		Context("provider", "shoutrrr").
		Context("operation", operation).
		Build()
}
