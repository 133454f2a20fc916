package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"hershield/internal/config"
	"hershield/internal/models"
	"hershield/pkg/push"
	"hershield/pkg/ridelog"
	"hershield/pkg/sms"
	"hershield/pkg/telephony"
)

type engineFixture struct {
	svc      EmergencyService
	clock    *fakeClock
	geo      *mockGeoProvider
	speech   *mockSpeech
	sender   *sms.StubSender
	dialer   *telephony.StubDialer
	prompts  *push.StubProvider
	rideRepo *mockRideRepo
	alerts   *mockAlertRepo
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	clock := newFakeClock()
	geo := &mockGeoProvider{}
	speechProvider := &mockSpeech{available: true}
	sender := sms.NewStubSender(true)
	dialer := telephony.NewStubDialer()
	prompts := push.NewStubProvider()
	rideRepo := newMockRideRepo()
	alertRepo := &mockAlertRepo{}
	log := testLogger()

	cfg := config.SafetyConfig{
		HotlineNumber:     "100",
		VoiceGraceWindow:  time.Minute,
		RideGraceWindow:   5 * time.Minute,
		RideCheckInterval: 10 * time.Minute,
		StrikeLimit:       3,
		NotifyWindow:      30 * time.Second,
		LocationTimeout:   time.Second,
		Languages:         []string{"en-US", "hi-IN"},
		DeviceToken:       "device-token-1",
	}

	location := NewLocationService(geo, NewAllowAllGate(), nil, log, LocationOptions{
		PollCadence: time.Hour,
		Timeout:     time.Second,
	})
	alerts := NewAlertService(sender, dialer, nil, alertRepo, nil, clock, log)
	voice := NewVoiceTrigger(speechProvider, NewAllowAllGate(), clock, log, cfg.Languages, nil)

	contacts := &mockContactRepo{
		ListFn: func(context.Context) ([]models.TrustedContact, error) {
			return []models.TrustedContact{
				contactFixture("Amma", "9876543210"),
				contactFixture("Ravi", "9876543211"),
			}, nil
		},
	}

	svc := NewEmergencyService(
		cfg,
		location,
		NewManualTrigger(clock),
		voice,
		alerts,
		prompts,
		contacts,
		rideRepo,
		ridelog.NoopSink{},
		nil,
		nil,
		clock,
		log,
	)

	return &engineFixture{
		svc:      svc,
		clock:    clock,
		geo:      geo,
		speech:   speechProvider,
		sender:   sender,
		dialer:   dialer,
		prompts:  prompts,
		rideRepo: rideRepo,
		alerts:   alertRepo,
	}
}

// waitFor polls for an asynchronous state change driven by the trigger
// consumer goroutines.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSOSDialsAndNotifiesImmediately(t *testing.T) {
	f := newEngineFixture(t)

	if err := f.svc.TriggerSOS(context.Background()); err != nil {
		t.Fatalf("TriggerSOS: %v", err)
	}

	// The deliberate tap escalates before TriggerSOS returns: no grace
	// window, no "are you safe?" prompt.
	if got := f.dialer.Dialed(); len(got) != 1 || got[0] != "100" {
		t.Fatalf("dialed = %v, want an immediate [100]", got)
	}
	if got := len(f.sender.Sent()); got != 2 {
		t.Errorf("sent = %d alerts, want 2 (one per contact)", got)
	}
	if got := f.prompts.Prompts(); len(got) != 0 {
		t.Errorf("manual SOS must not prompt for confirmation, got %+v", got)
	}
	if f.svc.PendingCheck() != nil {
		t.Error("manual SOS has no pending safety check")
	}
	if _, err := f.svc.ConfirmSafety(context.Background()); !errors.Is(err, ErrNoCheckPending) {
		t.Errorf("nothing to confirm during an SOS broadcast, got %v", err)
	}
	if !f.svc.SOSActive() {
		t.Error("session should stay active for live sharing")
	}

	// Time passing changes nothing: there is no deadline to lapse.
	f.clock.Advance(6 * time.Hour)
	if got := f.dialer.Dialed(); len(got) != 1 {
		t.Errorf("dialed = %v, want no further calls", got)
	}

	if err := f.svc.StopSOS(context.Background()); err != nil {
		t.Fatalf("StopSOS: %v", err)
	}
	if f.svc.SOSActive() {
		t.Error("StopSOS should end the session")
	}
}

func TestSOSLiveSharingRateLimited(t *testing.T) {
	f := newEngineFixture(t)

	if err := f.svc.TriggerSOS(context.Background()); err != nil {
		t.Fatalf("TriggerSOS: %v", err)
	}
	defer f.svc.StopSOS(context.Background())

	if got := len(f.sender.Sent()); got != 2 {
		t.Fatalf("sent = %d alerts after trigger, want 2", got)
	}

	// A sample inside the notify window rides the live view only; one past
	// the window re-texts every contact once.
	f.geo.emit(positionAt(f.clock.Now(), 17.40, 78.48))
	f.clock.Advance(30 * time.Second)
	f.geo.emit(positionAt(f.clock.Now(), 17.41, 78.49))

	waitFor(t, "location share fanout", func() bool { return len(f.sender.Sent()) == 4 })
	if got := f.dialer.Dialed(); len(got) != 1 {
		t.Errorf("location shares must not redial the hotline, dialed %v", got)
	}
}

func TestConcurrentSOSTriggerDropped(t *testing.T) {
	f := newEngineFixture(t)

	if err := f.svc.TriggerSOS(context.Background()); err != nil {
		t.Fatalf("TriggerSOS: %v", err)
	}
	if err := f.svc.TriggerSOS(context.Background()); !errors.Is(err, ErrSOSActive) {
		t.Errorf("expected ErrSOSActive, got %v", err)
	}
	if got := f.dialer.Dialed(); len(got) != 1 {
		t.Errorf("dropped trigger must not redial, dialed %v", got)
	}
}

func TestVoiceKeywordStartsSafetyCheck(t *testing.T) {
	f := newEngineFixture(t)

	if err := f.svc.StartVoiceWatch(context.Background()); err != nil {
		t.Fatalf("StartVoiceWatch: %v", err)
	}
	defer f.svc.StopVoiceWatch()

	f.speech.speak("help me", true)
	waitFor(t, "voice safety check", func() bool { return f.svc.PendingCheck() != nil })

	check := f.svc.PendingCheck()
	if check.Trigger.Source != models.TriggerKindVoice {
		t.Errorf("trigger source = %s, want voice", check.Trigger.Source)
	}

	if _, err := f.svc.ConfirmSafety(context.Background()); err != nil {
		t.Fatalf("ConfirmSafety: %v", err)
	}

	// The latch is released on resolution, so the next keyword fires again.
	f.speech.speak("help again", true)
	waitFor(t, "second voice safety check", func() bool { return f.svc.PendingCheck() != nil })
}

func TestVoiceStatusReflectsRecognizer(t *testing.T) {
	f := newEngineFixture(t)

	if status := f.svc.VoiceStatus(); status.Enabled {
		t.Error("voice should start disabled")
	}

	if err := f.svc.StartVoiceWatch(context.Background()); err != nil {
		t.Fatalf("StartVoiceWatch: %v", err)
	}
	status := f.svc.VoiceStatus()
	if !status.Enabled || status.ActiveLanguage != "en-US" {
		t.Errorf("status = %+v, want enabled on en-US", status)
	}

	f.svc.StopVoiceWatch()
	if status := f.svc.VoiceStatus(); status.Enabled {
		t.Error("voice should be disabled after StopVoiceWatch")
	}
}

func TestStartRideValidation(t *testing.T) {
	f := newEngineFixture(t)

	if _, err := f.svc.StartRide(context.Background(), &StartRideRequest{
		Destination:   "Hitec City",
		VehicleNumber: "not-a-plate",
		ContactPhone:  "9876543210",
	}); !errors.Is(err, ErrInvalidVehicle) {
		t.Errorf("expected ErrInvalidVehicle, got %v", err)
	}

	if _, err := f.svc.StartRide(context.Background(), &StartRideRequest{
		Destination:   "Hitec City",
		VehicleNumber: "TS09AB1234",
		ContactPhone:  "12345",
	}); !errors.Is(err, ErrInvalidPhone) {
		t.Errorf("expected ErrInvalidPhone, got %v", err)
	}
}

func TestRideThreeMissedChecksEscalate(t *testing.T) {
	f := newEngineFixture(t)

	ride, err := f.svc.StartRide(context.Background(), &StartRideRequest{
		FromAddress:   "Gachibowli",
		Destination:   "Hitec City",
		VehicleNumber: "TS09AB1234",
		ContactPhone:  "9876543210",
	})
	if err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	for i := 1; i <= 3; i++ {
		f.clock.Advance(10 * time.Minute)
		waitFor(t, "ride safety check", func() bool { return f.svc.PendingCheck() != nil })
		f.clock.Advance(5 * time.Minute)
	}

	if got := f.dialer.Dialed(); len(got) != 1 {
		t.Fatalf("dialed = %v, want exactly one hotline call on the third miss", got)
	}

	stored, _ := f.rideRepo.GetByID(context.Background(), ride.ID)
	if stored.Status != models.RideStatusEmergency {
		t.Errorf("ride status = %s, want emergency", stored.Status)
	}

	records, _ := f.alerts.List(context.Background(), 10)
	if len(records) != 1 || records[0].RideID == nil || *records[0].RideID != ride.ID {
		t.Errorf("alert record should reference the ride, got %+v", records)
	}
}

func TestStopRideAfterEscalationKeepsEmergencyStatus(t *testing.T) {
	f := newEngineFixture(t)

	ride, err := f.svc.StartRide(context.Background(), &StartRideRequest{
		FromAddress:   "Gachibowli",
		Destination:   "Hitec City",
		VehicleNumber: "TS09AB1234",
		ContactPhone:  "9876543210",
	})
	if err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	for i := 1; i <= 3; i++ {
		f.clock.Advance(10 * time.Minute)
		waitFor(t, "ride safety check", func() bool { return f.svc.PendingCheck() != nil })
		f.clock.Advance(5 * time.Minute)
	}

	// Escalation already retired the session; a late stop must neither
	// succeed nor downgrade the status.
	if _, err := f.svc.StopRide(context.Background()); !errors.Is(err, ErrNoActiveRide) {
		t.Fatalf("expected ErrNoActiveRide after escalation, got %v", err)
	}

	stored, _ := f.rideRepo.GetByID(context.Background(), ride.ID)
	if stored.Status != models.RideStatusEmergency {
		t.Errorf("ride status = %s, want emergency preserved", stored.Status)
	}
}

func TestRideConfirmResetsMissedChecks(t *testing.T) {
	f := newEngineFixture(t)

	if _, err := f.svc.StartRide(context.Background(), &StartRideRequest{
		Destination:   "Hitec City",
		VehicleNumber: "TS09AB1234",
		ContactPhone:  "9876543210",
		FromAddress:   "Gachibowli",
	}); err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	// Check #1 missed.
	f.clock.Advance(10 * time.Minute)
	waitFor(t, "check #1", func() bool { return f.svc.PendingCheck() != nil })
	f.clock.Advance(5 * time.Minute)

	// Check #2 confirmed.
	f.clock.Advance(5 * time.Minute)
	waitFor(t, "check #2", func() bool { return f.svc.PendingCheck() != nil })
	if _, err := f.svc.ConfirmSafety(context.Background()); err != nil {
		t.Fatalf("ConfirmSafety: %v", err)
	}

	// Checks #3 and #4 missed: counter restarted, still below the limit.
	for i := 0; i < 2; i++ {
		f.clock.Advance(10 * time.Minute)
		waitFor(t, "post-reset check", func() bool { return f.svc.PendingCheck() != nil })
		f.clock.Advance(5 * time.Minute)
	}

	if got := f.dialer.Dialed(); len(got) != 0 {
		t.Errorf("no escalation expected after counter reset, dialed %v", got)
	}
}

func TestStopRideCompletesAndDisarms(t *testing.T) {
	f := newEngineFixture(t)

	if _, err := f.svc.StartRide(context.Background(), &StartRideRequest{
		FromAddress:   "Gachibowli",
		Destination:   "Hitec City",
		VehicleNumber: "TS09AB1234",
		ContactPhone:  "9876543210",
	}); err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	stopped, err := f.svc.StopRide(context.Background())
	if err != nil {
		t.Fatalf("StopRide: %v", err)
	}
	if stopped.Status != models.RideStatusCompleted {
		t.Errorf("status = %s, want completed", stopped.Status)
	}

	// No check-ins fire after the ride ends.
	f.clock.Advance(time.Hour)
	if f.svc.PendingCheck() != nil {
		t.Error("periodic checks must stop with the ride")
	}

	if _, err := f.svc.StopRide(context.Background()); !errors.Is(err, ErrNoActiveRide) {
		t.Errorf("expected ErrNoActiveRide, got %v", err)
	}
}

func TestStartRideRejectsConcurrentRide(t *testing.T) {
	f := newEngineFixture(t)

	if _, err := f.svc.StartRide(context.Background(), &StartRideRequest{
		FromAddress:   "Gachibowli",
		Destination:   "Hitec City",
		VehicleNumber: "TS09AB1234",
		ContactPhone:  "9876543210",
	}); err != nil {
		t.Fatalf("StartRide: %v", err)
	}

	if _, err := f.svc.StartRide(context.Background(), &StartRideRequest{
		FromAddress:   "Kondapur",
		Destination:   "Airport",
		VehicleNumber: "TS10CD5678",
		ContactPhone:  "9876543211",
	}); !errors.Is(err, ErrRideActive) {
		t.Errorf("expected ErrRideActive, got %v", err)
	}
}
