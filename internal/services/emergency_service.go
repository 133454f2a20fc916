package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hershield/internal/config"
	"hershield/internal/models"
	"hershield/internal/repositories/interfaces"
	"hershield/internal/utils"
	"hershield/pkg/cache"
	"hershield/pkg/logger"
	"hershield/pkg/push"
	"hershield/pkg/ridelog"
	"hershield/pkg/websocket"
)

var (
	ErrSOSActive      = errors.New("an SOS broadcast is already active")
	ErrSOSNotActive   = errors.New("no SOS broadcast is active")
	ErrRideActive     = errors.New("a ride is already being monitored")
	ErrNoActiveRide   = errors.New("no ride is being monitored")
	ErrInvalidVehicle = errors.New("invalid vehicle number")
	ErrInvalidPhone   = errors.New("invalid phone number")
)

const sosShareKey = "sos:share_window"

// VoiceStatus describes the keyword spotter for status endpoints.
type VoiceStatus struct {
	Enabled        bool   `json:"enabled"`
	ActiveLanguage string `json:"active_language,omitempty"`
}

// StartRideRequest carries the ride-monitoring form.
type StartRideRequest struct {
	FromAddress   string `json:"from_address"`
	Destination   string `json:"destination" binding:"required"`
	VehicleNumber string `json:"vehicle_number" binding:"required"`
	ContactPhone  string `json:"contact_phone" binding:"required"`
}

// EmergencyService is the escalation engine. It owns three independent
// lifecycles:
//   - SOS: the manual tap IS the confirmation, so it dials the hotline and
//     notifies contacts immediately, then keeps sharing live location for
//     the rest of the session;
//   - voice: keyword spotting, guarded by a short confirmation window;
//   - ride: periodic check-ins with a long window and a multi-strike policy.
type EmergencyService interface {
	TriggerSOS(ctx context.Context) error
	StopSOS(ctx context.Context) error
	SOSActive() bool

	StartVoiceWatch(ctx context.Context) error
	StopVoiceWatch()
	VoiceStatus() VoiceStatus

	ConfirmSafety(ctx context.Context) (*models.SafetyCheck, error)
	CancelSafety(ctx context.Context) (*models.SafetyCheck, error)
	PendingCheck() *models.SafetyCheck

	StartRide(ctx context.Context, req *StartRideRequest) (*models.RideSession, error)
	StopRide(ctx context.Context) (*models.RideSession, error)
	ActiveRide(ctx context.Context) (*models.RideSession, error)
	RideHistory(ctx context.Context, limit int64) ([]models.RideSession, error)
}

type emergencyService struct {
	cfg         config.SafetyConfig
	location    LocationService
	manual      *ManualTrigger
	voice       *VoiceTrigger
	alerts      AlertService
	prompts     push.PromptProvider
	contactRepo interfaces.ContactRepository
	rideRepo    interfaces.RideRepository
	rideLog     ridelog.Sink
	redisCache  *cache.RedisCache
	hub         *websocket.Hub
	clock       Clock
	logger      *logger.Logger

	voiceProtocol SafetyCheckService
	rideProtocol  SafetyCheckService

	mu           sync.Mutex
	sosOn        bool
	sosStop      func()
	lastShare    time.Time
	ride         *models.RideSession
	rideTrigger  *PeriodicCheckTrigger
	rideDisarm   *sync.Once
	voiceOn      bool
	voiceStop    func()
}

func NewEmergencyService(
	cfg config.SafetyConfig,
	location LocationService,
	manual *ManualTrigger,
	voice *VoiceTrigger,
	alerts AlertService,
	prompts push.PromptProvider,
	contactRepo interfaces.ContactRepository,
	rideRepo interfaces.RideRepository,
	rideLog ridelog.Sink,
	redisCache *cache.RedisCache,
	hub *websocket.Hub,
	clock Clock,
	log *logger.Logger,
) EmergencyService {
	s := &emergencyService{
		cfg:         cfg,
		location:    location,
		manual:      manual,
		voice:       voice,
		alerts:      alerts,
		prompts:     prompts,
		contactRepo: contactRepo,
		rideRepo:    rideRepo,
		rideLog:     rideLog,
		redisCache:  redisCache,
		hub:         hub,
		clock:       clock,
		logger:      log,
	}

	s.voiceProtocol = NewSafetyCheckService(clock, log, 1, s.onVoiceOutcome)
	s.rideProtocol = NewSafetyCheckService(clock, log, cfg.StrikeLimit, s.onRideOutcome)
	return s
}

// --- SOS lifecycle ---

// TriggerSOS dials the hotline and notifies contacts before returning. The
// deliberate tap needs no confirmation window; that protection belongs to
// the inferred triggers (voice, missed ride check-ins).
func (s *emergencyService) TriggerSOS(ctx context.Context) error {
	s.mu.Lock()
	if s.sosOn {
		s.mu.Unlock()
		s.logger.LogDroppedTrigger("sos", string(models.TriggerKindManual))
		return ErrSOSActive
	}
	s.sosOn = true
	s.mu.Unlock()

	event := s.manual.Fire()
	s.escalate(ctx, event, nil)

	// The escalation text counts as the first share of the notify window.
	s.mu.Lock()
	s.lastShare = s.clock.Now()
	s.mu.Unlock()

	s.startSharing()
	return nil
}

func (s *emergencyService) StopSOS(ctx context.Context) error {
	s.mu.Lock()
	if !s.sosOn {
		s.mu.Unlock()
		return ErrSOSNotActive
	}
	s.mu.Unlock()

	s.endSOS()
	return nil
}

func (s *emergencyService) SOSActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sosOn
}

// startSharing consumes the merged location stream for as long as the SOS
// session lives, pushing every sample to the live view and re-texting
// contacts at most once per notify window.
func (s *emergencyService) startSharing() {
	ctx, cancel := context.WithCancel(context.Background())

	updates, err := s.location.Start(ctx)
	if err != nil {
		cancel()
		s.logger.WithError(err).Warn("Location sharing unavailable for SOS")
		return
	}

	s.mu.Lock()
	s.sosStop = cancel
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Err != nil || update.Position == nil {
					continue
				}
				s.onShareSample(ctx, update.Position)
			}
		}
	}()
}

func (s *emergencyService) onShareSample(ctx context.Context, pos *models.Position) {
	if s.hub != nil {
		s.hub.Publish(websocket.MessagePosition, map[string]interface{}{
			"latitude":    pos.Latitude,
			"longitude":   pos.Longitude,
			"captured_at": pos.CapturedAt,
		})
	}

	s.mu.Lock()
	due := s.clock.Now().Sub(s.lastShare) >= s.cfg.NotifyWindow
	s.mu.Unlock()
	if !due {
		return
	}

	if s.redisCache != nil {
		acquired, err := s.redisCache.SetNX(ctx, sosShareKey, 1, s.cfg.NotifyWindow)
		if err == nil && !acquired {
			return
		}
	}

	s.mu.Lock()
	s.lastShare = s.clock.Now()
	s.mu.Unlock()

	contacts, err := s.contactRepo.List(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load contacts for location share")
		return
	}

	body := s.alerts.ComposeBody(ctx, models.TriggerKindManual, pos)
	s.alerts.ShareLocation(ctx, &models.Alert{
		Body:     body,
		Contacts: contacts,
		Hotline:  s.cfg.HotlineNumber,
		Position: pos,
		Source:   models.TriggerKindManual,
	})
}

func (s *emergencyService) endSOS() {
	s.mu.Lock()
	stop := s.sosStop
	s.sosOn = false
	s.sosStop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.location.Stop()
}

// --- Voice lifecycle ---

func (s *emergencyService) StartVoiceWatch(ctx context.Context) error {
	s.mu.Lock()
	if s.voiceOn {
		s.mu.Unlock()
		return nil
	}
	s.voiceOn = true
	s.mu.Unlock()

	if err := s.voice.Start(ctx); err != nil {
		s.mu.Lock()
		s.voiceOn = false
		s.mu.Unlock()
		return fmt.Errorf("failed to start voice detection: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.voiceStop = cancel
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-s.voice.Events():
				if !ok {
					return
				}
				s.onVoiceEvent(watchCtx, event)
			}
		}
	}()

	s.publishVoiceStatus()
	return nil
}

func (s *emergencyService) onVoiceEvent(ctx context.Context, event models.TriggerEvent) {
	check, err := s.voiceProtocol.Begin(event, s.cfg.VoiceGraceWindow)
	if err != nil {
		s.logger.LogDroppedTrigger("voice", string(event.Source))
		s.voice.Reset()
		return
	}
	s.sendPrompt(ctx, check)
	s.publishCheck(check, "voice")
}

func (s *emergencyService) onVoiceOutcome(outcome CheckOutcome) {
	// Re-arm keyword spotting for the next utterance.
	s.voice.Reset()

	if outcome.Escalated {
		s.escalate(context.Background(), outcome.Check.Trigger, nil)
	}
}

func (s *emergencyService) StopVoiceWatch() {
	s.mu.Lock()
	if !s.voiceOn {
		s.mu.Unlock()
		return
	}
	s.voiceOn = false
	stop := s.voiceStop
	s.voiceStop = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.voice.Stop()
	s.publishVoiceStatus()
}

func (s *emergencyService) VoiceStatus() VoiceStatus {
	status := VoiceStatus{Enabled: s.voice.Enabled()}
	if status.Enabled {
		status.ActiveLanguage = s.voice.ActiveLanguage()
	}
	return status
}

func (s *emergencyService) publishVoiceStatus() {
	if s.hub == nil {
		return
	}
	status := s.VoiceStatus()
	s.hub.Publish(websocket.MessageVoiceStatus, map[string]interface{}{
		"enabled":  status.Enabled,
		"language": status.ActiveLanguage,
	})
}

// --- Confirmation routing ---

// ConfirmSafety answers whichever check is pending. Ride check-ins take
// precedence over voice.
func (s *emergencyService) ConfirmSafety(ctx context.Context) (*models.SafetyCheck, error) {
	return s.resolvePending(func(p SafetyCheckService) (*models.SafetyCheck, error) { return p.Confirm() })
}

func (s *emergencyService) CancelSafety(ctx context.Context) (*models.SafetyCheck, error) {
	return s.resolvePending(func(p SafetyCheckService) (*models.SafetyCheck, error) { return p.Cancel() })
}

func (s *emergencyService) resolvePending(resolve func(SafetyCheckService) (*models.SafetyCheck, error)) (*models.SafetyCheck, error) {
	for _, p := range []SafetyCheckService{s.rideProtocol, s.voiceProtocol} {
		if p.Pending() != nil {
			return resolve(p)
		}
	}
	return nil, ErrNoCheckPending
}

func (s *emergencyService) PendingCheck() *models.SafetyCheck {
	for _, p := range []SafetyCheckService{s.rideProtocol, s.voiceProtocol} {
		if check := p.Pending(); check != nil {
			return check
		}
	}
	return nil
}

// --- Ride lifecycle ---

func (s *emergencyService) StartRide(ctx context.Context, req *StartRideRequest) (*models.RideSession, error) {
	vehicle := utils.NormalizeVehicleNumber(req.VehicleNumber)
	if !utils.IsValidVehicleNumber(vehicle) {
		return nil, ErrInvalidVehicle
	}
	phone := utils.NormalizePhone(req.ContactPhone)
	if !utils.IsValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	s.mu.Lock()
	if s.ride != nil {
		s.mu.Unlock()
		return nil, ErrRideActive
	}
	s.mu.Unlock()

	if existing, err := s.rideRepo.GetActive(ctx); err == nil && existing != nil {
		return nil, ErrRideActive
	}

	from := req.FromAddress
	if from == "" {
		from = s.resolveFromAddress(ctx)
	}

	now := s.clock.Now()
	ride := &models.RideSession{
		ID:            primitive.NewObjectID(),
		FromAddress:   from,
		Destination:   req.Destination,
		VehicleNumber: vehicle,
		ContactPhone:  phone,
		Status:        models.RideStatusActive,
		StartedAt:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, fmt.Errorf("failed to create ride session: %w", err)
	}

	trigger := NewPeriodicCheckTrigger(s.cfg.RideCheckInterval, s.clock)

	s.mu.Lock()
	s.ride = ride
	s.rideTrigger = trigger
	s.rideDisarm = &sync.Once{}
	s.mu.Unlock()

	s.rideProtocol.ResetStrikes()
	trigger.Start()

	go func() {
		for event := range trigger.Events() {
			s.onRideCheck(context.Background(), event)
		}
	}()

	go func() {
		if err := s.rideLog.Append(context.Background(), ride); err != nil {
			s.logger.WithError(err).WithRideID(ride.ID).Warn("Failed to append ride to log")
		}
	}()

	s.logger.WithRideID(ride.ID).WithFields(map[string]interface{}{
		"destination": ride.Destination,
		"vehicle":     ride.VehicleNumber,
	}).Info("Ride monitoring started")
	return ride, nil
}

func (s *emergencyService) resolveFromAddress(ctx context.Context) string {
	pos, err := s.location.Current(ctx)
	if err != nil || pos == nil {
		return ""
	}
	if addr := s.alerts.ResolveAddress(ctx, pos); addr != "" {
		return addr
	}
	return pos.MapLink()
}

func (s *emergencyService) onRideCheck(ctx context.Context, event models.TriggerEvent) {
	s.mu.Lock()
	ride := s.ride
	s.mu.Unlock()
	if ride == nil {
		return
	}

	check, err := s.rideProtocol.Begin(event, s.cfg.RideGraceWindow)
	if err != nil {
		s.logger.LogDroppedTrigger("ride", string(event.Source))
		return
	}
	s.sendPrompt(ctx, check)
	s.publishCheck(check, "ride")
}

func (s *emergencyService) onRideOutcome(outcome CheckOutcome) {
	if !outcome.Escalated {
		return
	}

	s.mu.Lock()
	ride := s.ride
	s.mu.Unlock()
	if ride == nil {
		return
	}

	ctx := context.Background()
	s.disarmRide()
	if !s.finishRide(ctx, ride, models.RideStatusEmergency) {
		return
	}
	rideID := ride.ID
	s.escalate(ctx, outcome.Check.Trigger, &rideID)
}

func (s *emergencyService) StopRide(ctx context.Context) (*models.RideSession, error) {
	s.mu.Lock()
	ride := s.ride
	s.mu.Unlock()
	if ride == nil {
		return nil, ErrNoActiveRide
	}

	s.disarmRide()
	if _, err := s.rideProtocol.Cancel(); err != nil && !errors.Is(err, ErrNoCheckPending) {
		return nil, err
	}
	s.rideProtocol.ResetStrikes()
	if !s.finishRide(ctx, ride, models.RideStatusCompleted) {
		return nil, ErrNoActiveRide
	}

	s.logger.WithRideID(ride.ID).Info("Ride monitoring stopped")
	return ride, nil
}

// disarmRide stops the periodic timer exactly once per ride session.
func (s *emergencyService) disarmRide() {
	s.mu.Lock()
	trigger := s.rideTrigger
	once := s.rideDisarm
	s.mu.Unlock()
	if trigger == nil || once == nil {
		return
	}
	once.Do(trigger.Stop)
}

// finishRide retires the session; only the caller that claims the still-live
// session proceeds, so a stop racing the final missed deadline cannot
// overwrite an emergency status with completed.
func (s *emergencyService) finishRide(ctx context.Context, ride *models.RideSession, status models.RideStatus) bool {
	s.mu.Lock()
	if s.ride != ride {
		s.mu.Unlock()
		return false
	}
	s.ride = nil
	s.rideTrigger = nil
	s.rideDisarm = nil
	s.mu.Unlock()

	ride.Status = status
	if err := s.rideRepo.UpdateStatus(ctx, ride.ID, status); err != nil {
		s.logger.WithError(err).WithRideID(ride.ID).Error("Failed to update ride status")
	}

	go func() {
		if err := s.rideLog.UpdateStatus(context.Background(), ride.ID.Hex(), status); err != nil {
			s.logger.WithError(err).WithRideID(ride.ID).Warn("Failed to update ride log")
		}
	}()
	return true
}

func (s *emergencyService) ActiveRide(ctx context.Context) (*models.RideSession, error) {
	s.mu.Lock()
	ride := s.ride
	s.mu.Unlock()
	if ride != nil {
		return ride, nil
	}
	return s.rideRepo.GetActive(ctx)
}

func (s *emergencyService) RideHistory(ctx context.Context, limit int64) ([]models.RideSession, error) {
	rides, err := s.rideRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}
	return rides, nil
}

// --- Escalation ---

func (s *emergencyService) escalate(ctx context.Context, trigger models.TriggerEvent, rideID *primitive.ObjectID) {
	contacts, err := s.contactRepo.List(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load trusted contacts, dialing hotline only")
		contacts = nil
	}

	pos := s.currentPosition(ctx)
	body := s.alerts.ComposeBody(ctx, trigger.Source, pos)

	s.alerts.Notify(ctx, &models.Alert{
		Body:     body,
		Contacts: contacts,
		Hotline:  s.cfg.HotlineNumber,
		Position: pos,
		Source:   trigger.Source,
	}, rideID)
}

func (s *emergencyService) currentPosition(ctx context.Context) *models.Position {
	posCtx, cancel := context.WithTimeout(ctx, s.cfg.LocationTimeout)
	defer cancel()
	if pos, err := s.location.Current(posCtx); err == nil && pos != nil {
		return pos
	}
	return s.location.Latest()
}

func (s *emergencyService) sendPrompt(ctx context.Context, check *models.SafetyCheck) {
	if s.prompts == nil || s.cfg.DeviceToken == "" {
		return
	}

	resp, err := s.prompts.SendPrompt(ctx, &push.PromptRequest{
		Token:    s.cfg.DeviceToken,
		Title:    "Are you safe?",
		Body:     "Tap to confirm you are safe, or this will escalate to your trusted contacts.",
		CheckID:  check.ID.Hex(),
		Priority: "high",
	})
	if err != nil {
		s.logger.WithError(err).Warn("Failed to deliver safety prompt")
		return
	}
	if resp != nil && !resp.Success {
		s.logger.WithField("error", resp.Error).Warn("Safety prompt rejected")
	}
}

func (s *emergencyService) publishCheck(check *models.SafetyCheck, lifecycle string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(websocket.MessageSafetyCheck, map[string]interface{}{
		"check_id":  check.ID.Hex(),
		"lifecycle": lifecycle,
		"state":     string(check.State),
		"deadline":  check.Deadline,
	})
}
