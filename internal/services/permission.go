package services

import "context"

const (
	CapabilityLocation      = "location"
	CapabilityMicrophone    = "microphone"
	CapabilityNotifications = "notifications"
	CapabilitySMS           = "sms"
)

// PermissionGate is queried before any sensor or delivery capability is
// used. On device this fronts the OS permission dialogs; server-side wiring
// uses a static gate.
type PermissionGate interface {
	Request(ctx context.Context, capability string) (bool, error)
}

type staticGate struct {
	granted map[string]bool
}

// NewStaticGate grants exactly the listed capabilities and denies the rest.
func NewStaticGate(granted ...string) PermissionGate {
	m := make(map[string]bool, len(granted))
	for _, c := range granted {
		m[c] = true
	}
	return &staticGate{granted: m}
}

// NewAllowAllGate grants everything; default for headless wiring.
func NewAllowAllGate() PermissionGate {
	return &staticGate{granted: nil}
}

func (g *staticGate) Request(_ context.Context, capability string) (bool, error) {
	if g.granted == nil {
		return true, nil
	}
	return g.granted[capability], nil
}
