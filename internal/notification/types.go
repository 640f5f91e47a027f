// Package notification delivers fire-and-forget progress notifications of
// sync runs to the log, push services and an MQTT broker.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Type represents the category of a notification
type Type string

const (
	// TypeProgress reports upload progress
	TypeProgress Type = "progress"
	// TypeWarning reports a failed chunk or a skipped run
	TypeWarning Type = "warning"
	// TypeInfo reports run summaries
	TypeInfo Type = "info"
)

// Notification represents a single notification event
type Notification struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Component string         `json:"component,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewNotification creates a new notification with a unique ID and timestamp
func NewNotification(notifType Type, title, message string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		Type:      notifType,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithComponent sets the component field and returns the notification for chaining
func (n *Notification) WithComponent(component string) *Notification {
	n.Component = component
	return n
}

// WithMetadata adds metadata and returns the notification for chaining
func (n *Notification) WithMetadata(key string, value any) *Notification {
	if n.Metadata == nil {
		n.Metadata = make(map[string]any)
	}
	n.Metadata[key] = value
	return n
}

// Notifier is the fire-and-forget surface used by the uploader.
// Display must not block and has no failure outcome.
type Notifier interface {
	Display(title, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(title, message string)

// Display calls f.
func (f NotifierFunc) Display(title, message string) { f(title, message) }

// Discard is a Notifier that drops everything.
var Discard Notifier = NotifierFunc(func(string, string) {})
