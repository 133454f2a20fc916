package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hershield/internal/models"
	"hershield/pkg/geolocation"
	"hershield/pkg/logger"
	"hershield/pkg/speech"
)

// fakeClock drives timers manually so deadline tests are deterministic.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 8, 21, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration, fn func()) TimerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and fires due timers in deadline order,
// releasing the lock around each callback so timers can re-arm.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.Slice(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })
		var next *fakeTimer
		for _, t := range c.timers {
			if !t.fired && !t.stopped && !t.at.After(c.now) {
				next = t
				break
			}
		}
		if next == nil {
			c.mu.Unlock()
			return
		}
		next.fired = true
		fn := next.fn
		c.mu.Unlock()
		fn()
	}
}

// fireAll re-fires every armed-and-unfired timer regardless of deadline,
// plus already-fired ones when force is set, to probe idempotency.
func (c *fakeClock) fireAll(force bool) {
	c.mu.Lock()
	pending := make([]*fakeTimer, 0, len(c.timers))
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		if t.fired && !force {
			continue
		}
		t.fired = true
		pending = append(pending, t)
	}
	c.mu.Unlock()

	for _, t := range pending {
		t.fn()
	}
}

func testLogger() *logger.Logger {
	return logger.NewNopLogger()
}

// --- geolocation mocks ---

type mockSubscription struct {
	cleared bool
}

func (s *mockSubscription) Clear() { s.cleared = true }

// mockGeoProvider exposes the watch callbacks so tests can inject samples.
type mockGeoProvider struct {
	mu         sync.Mutex
	onSample   func(models.Position)
	onError    func(error)
	sub        *mockSubscription
	onceFn     func(ctx context.Context, opts geolocation.Options) (*models.Position, error)
	watchErr   error
	watchCalls int
	watchHook  func()
}

func (p *mockGeoProvider) Watch(_ context.Context, _ geolocation.Options, onSample func(models.Position), onError func(error)) (geolocation.Subscription, error) {
	p.mu.Lock()
	if p.watchErr != nil {
		p.mu.Unlock()
		return nil, p.watchErr
	}
	p.watchCalls++
	p.onSample = onSample
	p.onError = onError
	p.sub = &mockSubscription{}
	sub := p.sub
	hook := p.watchHook
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	return sub, nil
}

func (p *mockGeoProvider) watchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watchCalls
}

func (p *mockGeoProvider) Once(ctx context.Context, opts geolocation.Options) (*models.Position, error) {
	p.mu.Lock()
	fn := p.onceFn
	p.mu.Unlock()
	if fn == nil {
		return nil, geolocation.ErrUnavailable
	}
	return fn(ctx, opts)
}

func (p *mockGeoProvider) emit(pos models.Position) {
	p.mu.Lock()
	fn := p.onSample
	p.mu.Unlock()
	if fn != nil {
		fn(pos)
	}
}

func (p *mockGeoProvider) fail(err error) {
	p.mu.Lock()
	fn := p.onError
	p.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// --- speech mocks ---

// mockSpeech records which language each recognition session used and lets
// tests feed utterances and simulate recognizer failures.
type mockSpeech struct {
	mu        sync.Mutex
	available bool
	startErr  error
	languages []string
	callbacks speech.Callbacks
	stopped   int
}

func (m *mockSpeech) Available() bool { return m.available }

func (m *mockSpeech) Start(_ context.Context, languageTag string, cb speech.Callbacks) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	m.languages = append(m.languages, languageTag)
	m.callbacks = cb
	return nil
}

func (m *mockSpeech) Stop() {
	m.mu.Lock()
	m.stopped++
	m.mu.Unlock()
}

func (m *mockSpeech) speak(text string, final bool) {
	m.mu.Lock()
	cb := m.callbacks
	m.mu.Unlock()
	if cb.OnUtterance != nil {
		cb.OnUtterance(text, final)
	}
}

func (m *mockSpeech) crash(err error) {
	m.mu.Lock()
	cb := m.callbacks
	m.mu.Unlock()
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

func (m *mockSpeech) sessionLanguages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.languages))
	copy(out, m.languages)
	return out
}

// --- repository mocks ---

type mockContactRepo struct {
	CreateFn     func(ctx context.Context, contact *models.TrustedContact) error
	GetByIDFn    func(ctx context.Context, id primitive.ObjectID) (*models.TrustedContact, error)
	GetByPhoneFn func(ctx context.Context, phoneNumber string) (*models.TrustedContact, error)
	ListFn       func(ctx context.Context) ([]models.TrustedContact, error)
	DeleteFn     func(ctx context.Context, id primitive.ObjectID) error
}

func (m *mockContactRepo) Create(ctx context.Context, contact *models.TrustedContact) error {
	return m.CreateFn(ctx, contact)
}

func (m *mockContactRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.TrustedContact, error) {
	return m.GetByIDFn(ctx, id)
}

func (m *mockContactRepo) GetByPhone(ctx context.Context, phoneNumber string) (*models.TrustedContact, error) {
	return m.GetByPhoneFn(ctx, phoneNumber)
}

func (m *mockContactRepo) List(ctx context.Context) ([]models.TrustedContact, error) {
	if m.ListFn == nil {
		return nil, nil
	}
	return m.ListFn(ctx)
}

func (m *mockContactRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return m.DeleteFn(ctx, id)
}

type mockRideRepo struct {
	mu     sync.Mutex
	rides  map[primitive.ObjectID]*models.RideSession
	active *models.RideSession
}

func newMockRideRepo() *mockRideRepo {
	return &mockRideRepo{rides: make(map[primitive.ObjectID]*models.RideSession)}
}

func (m *mockRideRepo) Create(_ context.Context, ride *models.RideSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
	m.active = ride
	return nil
}

func (m *mockRideRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.RideSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rides[id], nil
}

func (m *mockRideRepo) GetActive(_ context.Context) (*models.RideSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, nil
}

func (m *mockRideRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status models.RideStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ride, ok := m.rides[id]; ok {
		ride.Status = status
		if status != models.RideStatusActive && m.active != nil && m.active.ID == id {
			m.active = nil
		}
	}
	return nil
}

func (m *mockRideRepo) List(_ context.Context, _ int64) ([]models.RideSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RideSession, 0, len(m.rides))
	for _, r := range m.rides {
		out = append(out, *r)
	}
	return out, nil
}

type mockAlertRepo struct {
	mu      sync.Mutex
	records []models.AlertRecord
}

func (m *mockAlertRepo) Create(_ context.Context, record *models.AlertRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *record)
	return nil
}

func (m *mockAlertRepo) List(_ context.Context, _ int64) ([]models.AlertRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AlertRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}

func contactFixture(name, phone string) models.TrustedContact {
	return models.TrustedContact{
		ID:          primitive.NewObjectID(),
		DisplayName: name,
		PhoneNumber: phone,
	}
}

func positionAt(t time.Time, lat, lng float64) models.Position {
	return models.Position{Latitude: lat, Longitude: lng, CapturedAt: t}
}
