package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hershield/internal/models"
	"hershield/pkg/cache"
	"hershield/pkg/geolocation"
	"hershield/pkg/logger"
)

const latestPositionKey = "location:latest"

// LocationUpdate is one element of the live position stream: either a fresh
// sample or an acquisition failure.
type LocationUpdate struct {
	Position *models.Position
	Err      error
}

// LocationService merges a continuous provider watch with a fixed-cadence
// poll fallback into one stream that only ever moves forward in time.
type LocationService interface {
	// Start begins acquisition and returns the update stream. Calling Start
	// while already running returns the existing stream without spawning a
	// second watcher.
	Start(ctx context.Context) (<-chan LocationUpdate, error)
	// Stop cancels the watch and poll loop and closes the stream. The
	// service can be started again afterwards.
	Stop()
	// Current performs a single-shot fix, falling back to the freshest
	// cached sample when the fix fails.
	Current(ctx context.Context) (*models.Position, error)
	// Latest returns the freshest known sample without touching the sensor.
	Latest() *models.Position
}

type LocationOptions struct {
	HighAccuracy bool
	PollCadence  time.Duration
	Timeout      time.Duration
}

type locationService struct {
	provider geolocation.Provider
	gate     PermissionGate
	cache    *cache.RedisCache
	logger   *logger.Logger
	opts     LocationOptions

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	sub      geolocation.Subscription
	out      chan LocationUpdate
	latest   *models.Position
	reported bool // permission denial already surfaced
}

func NewLocationService(
	provider geolocation.Provider,
	gate PermissionGate,
	redisCache *cache.RedisCache,
	log *logger.Logger,
	opts LocationOptions,
) LocationService {
	if opts.PollCadence <= 0 {
		opts.PollCadence = 3 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &locationService{
		provider: provider,
		gate:     gate,
		cache:    redisCache,
		logger:   log,
		opts:     opts,
	}
}

func (s *locationService) Start(ctx context.Context) (<-chan LocationUpdate, error) {
	s.mu.Lock()
	if s.running {
		out := s.out
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	granted, err := s.gate.Request(ctx, CapabilityLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to request location permission: %w", err)
	}
	if !granted {
		return nil, geolocation.ErrPermissionDenied
	}

	// Re-check and mark running in one critical section so two concurrent
	// Starts cannot both spawn a watcher.
	s.mu.Lock()
	if s.running {
		out := s.out
		s.mu.Unlock()
		return out, nil
	}
	watchCtx, cancel := context.WithCancel(context.Background())
	out := make(chan LocationUpdate, 16)
	s.running = true
	s.cancel = cancel
	s.out = out
	s.reported = false
	s.mu.Unlock()

	watchOpts := geolocation.Options{
		HighAccuracy: s.opts.HighAccuracy,
		Timeout:      s.opts.Timeout,
	}

	sub, err := s.provider.Watch(watchCtx, watchOpts, s.onSample, s.onError)
	if err != nil {
		s.Stop()
		return nil, fmt.Errorf("failed to start location watch: %w", err)
	}

	s.mu.Lock()
	if !s.running || s.out != out {
		// Stopped while the watch was coming up; the fresh subscription
		// must not outlive the closed stream.
		s.mu.Unlock()
		sub.Clear()
		return out, nil
	}
	s.sub = sub
	s.mu.Unlock()

	go s.pollLoop(watchCtx)

	return out, nil
}

func (s *locationService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	sub := s.sub
	out := s.out
	s.cancel = nil
	s.sub = nil
	s.out = nil
	s.mu.Unlock()

	cancel()
	if sub != nil {
		sub.Clear()
	}
	close(out)
}

func (s *locationService) Current(ctx context.Context) (*models.Position, error) {
	fixCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	pos, err := s.provider.Once(fixCtx, geolocation.Options{
		HighAccuracy: s.opts.HighAccuracy,
		Timeout:      s.opts.Timeout,
	})
	if err == nil {
		s.remember(*pos)
		return pos, nil
	}

	if latest := s.Latest(); latest != nil {
		return latest, nil
	}

	return nil, fmt.Errorf("failed to acquire position: %w", err)
}

func (s *locationService) Latest() *models.Position {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()
	if latest != nil {
		return latest
	}

	if s.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var cached models.Position
	if err := s.cache.Get(ctx, latestPositionKey, &cached); err != nil {
		return nil
	}
	return &cached
}

func (s *locationService) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PollCadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fixCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
			pos, err := s.provider.Once(fixCtx, geolocation.Options{
				HighAccuracy: s.opts.HighAccuracy,
				Timeout:      s.opts.Timeout,
			})
			cancel()

			if err != nil {
				s.onError(err)
				continue
			}
			s.onSample(*pos)
		}
	}
}

// onSample feeds a sample from either the watch or the poll loop into the
// stream. Samples older than the freshest delivered one are discarded so a
// late poll result never rolls the consumer's view backwards.
func (s *locationService) onSample(pos models.Position) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	if !pos.NewerThan(s.latest) {
		s.mu.Unlock()
		return
	}
	s.latest = &pos
	s.deliver(LocationUpdate{Position: &pos})
	s.mu.Unlock()

	s.writeCache(pos)
}

func (s *locationService) onError(err error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}

	if geolocation.Terminal(err) {
		if s.reported {
			s.mu.Unlock()
			return
		}
		s.reported = true
		s.deliver(LocationUpdate{Err: err})
		s.mu.Unlock()

		s.logger.WithError(err).Error("Location permission denied, stopping acquisition")
		s.Stop()
		return
	}

	s.deliver(LocationUpdate{Err: err})
	s.mu.Unlock()
}

// deliver pushes latest-wins: when the consumer lags, the oldest buffered
// update is evicted instead of blocking the sensor callback.
// Caller holds s.mu.
func (s *locationService) deliver(update LocationUpdate) {
	select {
	case s.out <- update:
	default:
		select {
		case <-s.out:
		default:
		}
		select {
		case s.out <- update:
		default:
		}
	}
}

func (s *locationService) remember(pos models.Position) {
	s.mu.Lock()
	if pos.NewerThan(s.latest) {
		s.latest = &pos
	}
	s.mu.Unlock()

	s.writeCache(pos)
}

func (s *locationService) writeCache(pos models.Position) {
	if s.cache == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.cache.Set(ctx, latestPositionKey, pos, 10*time.Minute); err != nil {
		s.logger.WithError(err).Debug("Failed to cache latest position")
	}
}
