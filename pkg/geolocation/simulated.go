package geolocation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"hershield/internal/models"
)

// SimulatedProvider emits a random walk around a seed coordinate. It stands
// in for device GPS in demo wiring and tests; real acquisition happens on the
// device and reaches the engine through the same Provider interface.
type SimulatedProvider struct {
	mu       sync.Mutex
	lat, lng float64
	interval time.Duration
	rng      *rand.Rand
}

func NewSimulatedProvider(lat, lng float64, interval time.Duration) *SimulatedProvider {
	return &SimulatedProvider{
		lat:      lat,
		lng:      lng,
		interval: interval,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type simulatedSubscription struct {
	cancel context.CancelFunc
}

func (s *simulatedSubscription) Clear() {
	s.cancel()
}

func (p *SimulatedProvider) Watch(ctx context.Context, _ Options, onSample func(models.Position), _ func(error)) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				onSample(p.step())
			}
		}
	}()

	return &simulatedSubscription{cancel: cancel}, nil
}

func (p *SimulatedProvider) Once(_ context.Context, _ Options) (*models.Position, error) {
	pos := p.step()
	return &pos, nil
}

func (p *SimulatedProvider) step() models.Position {
	p.mu.Lock()
	defer p.mu.Unlock()

	// ~10m jitter per step
	p.lat += (p.rng.Float64() - 0.5) * 0.0002
	p.lng += (p.rng.Float64() - 0.5) * 0.0002

	accuracy := 15.0
	return models.Position{
		Latitude:   p.lat,
		Longitude:  p.lng,
		Accuracy:   &accuracy,
		CapturedAt: time.Now(),
	}
}
