package geolocation

import (
	"context"
	"errors"
	"time"

	"hershield/internal/models"
)

var (
	// ErrPermissionDenied is terminal: the watch is closed and the caller is
	// told once. All other provider errors are transient.
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("position unavailable")
	ErrTimeout          = errors.New("position request timed out")
)

type Options struct {
	HighAccuracy bool
	MaxAge       time.Duration
	Timeout      time.Duration
}

// Subscription is the handle for an active position watch.
type Subscription interface {
	Clear()
}

// Provider abstracts device GPS. Watch pushes samples until Clear; Once
// performs a single fix.
type Provider interface {
	Watch(ctx context.Context, opts Options, onSample func(models.Position), onError func(error)) (Subscription, error)
	Once(ctx context.Context, opts Options) (*models.Position, error)
}

// Terminal reports whether a provider error should tear the watch down
// instead of being retried.
func Terminal(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
