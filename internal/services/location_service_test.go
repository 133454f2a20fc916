package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hershield/internal/models"
	"hershield/pkg/geolocation"
)

func newTestLocationService(provider *mockGeoProvider, gate PermissionGate) LocationService {
	return NewLocationService(provider, gate, nil, testLogger(), LocationOptions{
		PollCadence: time.Hour, // keep the poll loop quiet during tests
		Timeout:     time.Second,
	})
}

func drain(ch <-chan LocationUpdate) []LocationUpdate {
	var out []LocationUpdate
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, u)
		default:
			return out
		}
	}
}

func TestLocationStreamDiscardsOlderSamples(t *testing.T) {
	provider := &mockGeoProvider{}
	svc := newTestLocationService(provider, NewAllowAllGate())

	updates, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	base := time.Now()
	provider.emit(positionAt(base.Add(5*time.Second), 17.40, 78.50))
	// A late poll result with an older timestamp must not roll back.
	provider.emit(positionAt(base.Add(3*time.Second), 17.10, 78.10))

	got := drain(updates)
	if len(got) != 1 {
		t.Fatalf("expected 1 update, got %d", len(got))
	}
	if got[0].Position.Latitude != 17.40 {
		t.Errorf("expected newest sample to survive, got lat %v", got[0].Position.Latitude)
	}

	latest := svc.Latest()
	if latest == nil || !latest.CapturedAt.Equal(base.Add(5*time.Second)) {
		t.Errorf("Latest should keep the newer sample, got %+v", latest)
	}
}

func TestLocationStartIsIdempotent(t *testing.T) {
	provider := &mockGeoProvider{}
	svc := newTestLocationService(provider, NewAllowAllGate())

	first, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	second, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if first != second {
		t.Error("re-entrant Start should return the existing stream")
	}
	svc.Stop()
}

func TestLocationConcurrentStartsShareOneWatch(t *testing.T) {
	provider := &mockGeoProvider{}
	svc := newTestLocationService(provider, NewAllowAllGate())

	const starters = 8
	streams := make([]<-chan LocationUpdate, starters)
	var wg sync.WaitGroup
	wg.Add(starters)
	for i := 0; i < starters; i++ {
		go func(i int) {
			defer wg.Done()
			ch, err := svc.Start(context.Background())
			if err != nil {
				t.Errorf("Start: %v", err)
				return
			}
			streams[i] = ch
		}(i)
	}
	wg.Wait()
	defer svc.Stop()

	if got := provider.watchCount(); got != 1 {
		t.Fatalf("watch started %d times, want 1", got)
	}
	for i := 1; i < starters; i++ {
		if streams[i] != streams[0] {
			t.Fatal("all concurrent Starts must return the same stream")
		}
	}
}

func TestLocationStopDuringStartClearsFreshWatch(t *testing.T) {
	provider := &mockGeoProvider{}
	svc := newTestLocationService(provider, NewAllowAllGate())

	// Stop lands in the window between marking the service running and
	// recording the subscription handle.
	provider.watchHook = func() { svc.Stop() }

	updates, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if provider.sub == nil || !provider.sub.cleared {
		t.Error("subscription created during a racing Stop must be cleared")
	}
	if _, ok := <-updates; ok {
		t.Error("stream should be closed after the racing Stop")
	}
}

func TestLocationPermissionDeniedAtStart(t *testing.T) {
	provider := &mockGeoProvider{}
	svc := newTestLocationService(provider, NewStaticGate(CapabilityMicrophone))

	if _, err := svc.Start(context.Background()); !errors.Is(err, geolocation.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestLocationTerminalErrorReportedOnceAndStops(t *testing.T) {
	provider := &mockGeoProvider{}
	svc := newTestLocationService(provider, NewAllowAllGate())

	updates, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	provider.fail(geolocation.ErrPermissionDenied)
	provider.fail(geolocation.ErrPermissionDenied)

	var reported int
	for u := range updates {
		if errors.Is(u.Err, geolocation.ErrPermissionDenied) {
			reported++
		}
	}
	if reported != 1 {
		t.Errorf("terminal error should surface exactly once, got %d", reported)
	}
	if provider.sub == nil || !provider.sub.cleared {
		t.Error("watch subscription should be cleared after terminal error")
	}
}

func TestLocationTransientErrorsKeepStreaming(t *testing.T) {
	provider := &mockGeoProvider{}
	svc := newTestLocationService(provider, NewAllowAllGate())

	updates, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	provider.fail(geolocation.ErrTimeout)
	provider.emit(positionAt(time.Now(), 17.38, 78.48))

	got := drain(updates)
	if len(got) != 2 {
		t.Fatalf("expected error then sample, got %d updates", len(got))
	}
	if !errors.Is(got[0].Err, geolocation.ErrTimeout) {
		t.Errorf("first update should carry the transient error, got %+v", got[0])
	}
	if got[1].Position == nil {
		t.Error("stream should continue delivering samples after a transient error")
	}
}

func TestLocationLatestWinsWhenConsumerLags(t *testing.T) {
	provider := &mockGeoProvider{}
	svc := newTestLocationService(provider, NewAllowAllGate())

	updates, err := svc.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	base := time.Now()
	for i := 0; i < 40; i++ {
		provider.emit(positionAt(base.Add(time.Duration(i)*time.Second), 17.0, 78.0+float64(i)))
	}

	got := drain(updates)
	if len(got) == 0 {
		t.Fatal("expected buffered updates")
	}
	last := got[len(got)-1]
	if last.Position == nil || last.Position.Longitude != 78.0+39 {
		t.Errorf("newest sample must survive consumer lag, got %+v", last.Position)
	}
}

func TestLocationCurrentFallsBackToLatest(t *testing.T) {
	provider := &mockGeoProvider{}
	provider.onceFn = func(context.Context, geolocation.Options) (*models.Position, error) {
		return nil, geolocation.ErrTimeout
	}
	svc := newTestLocationService(provider, NewAllowAllGate())

	if _, err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer svc.Stop()

	provider.emit(positionAt(time.Now(), 17.5, 78.5))

	pos, err := svc.Current(context.Background())
	if err != nil {
		t.Fatalf("Current should fall back to the cached sample: %v", err)
	}
	if pos.Latitude != 17.5 {
		t.Errorf("expected cached sample, got %+v", pos)
	}
}
