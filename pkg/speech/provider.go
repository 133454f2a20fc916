package speech

import (
	"context"
	"errors"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrNotSupported     = errors.New("speech recognition not supported on this platform")
	ErrNetwork          = errors.New("recognition network error")
)

type Callbacks struct {
	// OnUtterance receives recognized text; final marks the end of an
	// utterance. Keyword matching only considers final results.
	OnUtterance func(text string, final bool)
	OnError     func(err error)
	OnStopped   func()
}

// Provider abstracts the platform speech recognizer. One language is active
// per Start; the voice trigger restarts with the next language when the
// recognizer errors or stops.
type Provider interface {
	Available() bool
	Start(ctx context.Context, languageTag string, callbacks Callbacks) error
	Stop()
}
