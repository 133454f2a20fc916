package telephony

import "context"

// Dialer places the hotline call. Dialing is fire-and-forget: the escalation
// path must never wait on call progress, and a dial failure must never block
// contact fanout.
type Dialer interface {
	Dial(ctx context.Context, number string) error
}
