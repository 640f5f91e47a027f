package notification

import "context"

// Provider defines a delivery backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	GetName() string
	ValidateConfig() error
	Send(ctx context.Context, n *Notification) error
	SupportsType(notifType Type) bool
	IsEnabled() bool
}

// supportedTypes builds a type set, defaulting to every type.
func supportedTypes(types []string) map[Type]bool {
	set := map[Type]bool{}
	if len(types) == 0 {
		set[TypeProgress] = true
		set[TypeWarning] = true
		set[TypeInfo] = true
		return set
	}
	for _, t := range types {
		set[Type(t)] = true
	}
	return set
}
