package speech

import "context"

// UnsupportedProvider is wired on platforms without a recognizer. The voice
// trigger degrades to a no-op that never fires instead of crashing.
type UnsupportedProvider struct{}

func (UnsupportedProvider) Available() bool {
	return false
}

func (UnsupportedProvider) Start(_ context.Context, _ string, _ Callbacks) error {
	return ErrNotSupported
}

func (UnsupportedProvider) Stop() {}
