package services

import (
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hershield/internal/models"
	"hershield/pkg/logger"
)

var (
	ErrNoCheckPending   = errors.New("no safety check pending")
	ErrCheckAlreadyOpen = errors.New("a safety check is already pending")
)

// CheckOutcome is delivered exactly once per safety check, when it leaves
// the pending state.
type CheckOutcome struct {
	Check     *models.SafetyCheck
	Escalated bool
}

// SafetyCheckService runs the confirm-or-escalate window around a trigger.
// At most one check is pending at a time. A check that reaches its deadline
// counts as a strike; escalation fires when the strike count reaches the
// configured limit (1 for SOS and voice checks, typically 3 for ride
// check-ins). Confirming resets the strike count, cancelling does not.
type SafetyCheckService interface {
	Begin(trigger models.TriggerEvent, grace time.Duration) (*models.SafetyCheck, error)
	Confirm() (*models.SafetyCheck, error)
	Cancel() (*models.SafetyCheck, error)
	Pending() *models.SafetyCheck
	Strikes() int
	ResetStrikes()
}

type safetyCheckService struct {
	clock       Clock
	logger      *logger.Logger
	strikeLimit int
	onOutcome   func(CheckOutcome)

	mu      sync.Mutex
	current *models.SafetyCheck
	timer   TimerHandle
	strikes int
}

// NewSafetyCheckService builds a protocol instance with its own strike
// counter. onOutcome runs without the service lock held and may call back in.
func NewSafetyCheckService(clock Clock, log *logger.Logger, strikeLimit int, onOutcome func(CheckOutcome)) SafetyCheckService {
	if strikeLimit < 1 {
		strikeLimit = 1
	}
	return &safetyCheckService{
		clock:       clock,
		logger:      log,
		strikeLimit: strikeLimit,
		onOutcome:   onOutcome,
	}
}

func (s *safetyCheckService) Begin(trigger models.TriggerEvent, grace time.Duration) (*models.SafetyCheck, error) {
	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return nil, ErrCheckAlreadyOpen
	}

	now := s.clock.Now()
	check := &models.SafetyCheck{
		ID:              primitive.NewObjectID(),
		Trigger:         trigger,
		State:           models.SafetyCheckPending,
		StartedAt:       now,
		Deadline:        now.Add(grace),
		UnresolvedCount: s.strikes,
	}
	s.current = check
	id := check.ID
	s.timer = s.clock.After(grace, func() { s.expire(id) })
	s.mu.Unlock()

	s.logger.WithCheckID(id).WithFields(map[string]interface{}{
		"source":   string(trigger.Source),
		"deadline": check.Deadline,
	}).Info("Safety check started")

	return check, nil
}

func (s *safetyCheckService) Confirm() (*models.SafetyCheck, error) {
	return s.resolve(models.SafetyCheckConfirmed)
}

func (s *safetyCheckService) Cancel() (*models.SafetyCheck, error) {
	return s.resolve(models.SafetyCheckCancelled)
}

func (s *safetyCheckService) resolve(state models.SafetyCheckState) (*models.SafetyCheck, error) {
	s.mu.Lock()
	check := s.current
	if check == nil {
		s.mu.Unlock()
		return nil, ErrNoCheckPending
	}

	check.State = state
	s.current = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if state == models.SafetyCheckConfirmed {
		s.strikes = 0
	}
	s.mu.Unlock()

	s.logger.WithCheckID(check.ID).WithField("state", string(state)).Info("Safety check resolved")

	if s.onOutcome != nil {
		s.onOutcome(CheckOutcome{Check: check})
	}
	return check, nil
}

// expire runs from the timer callback. The check ID guard makes a late tick
// racing a Confirm a no-op.
func (s *safetyCheckService) expire(id primitive.ObjectID) {
	s.mu.Lock()
	check := s.current
	if check == nil || check.ID != id || check.State.Terminal() {
		s.mu.Unlock()
		return
	}

	s.strikes++
	check.UnresolvedCount = s.strikes
	escalate := s.strikes >= s.strikeLimit
	if escalate {
		check.State = models.SafetyCheckEscalated
	} else {
		check.State = models.SafetyCheckUnresolved
	}
	s.current = nil
	s.timer = nil
	s.mu.Unlock()

	s.logger.WithCheckID(id).WithFields(map[string]interface{}{
		"strikes":   check.UnresolvedCount,
		"escalated": escalate,
	}).Warn("Safety check deadline missed")

	if s.onOutcome != nil {
		s.onOutcome(CheckOutcome{Check: check, Escalated: escalate})
	}
}

func (s *safetyCheckService) Pending() *models.SafetyCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *safetyCheckService) Strikes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strikes
}

// ResetStrikes clears accumulated strikes, used when a ride session ends.
func (s *safetyCheckService) ResetStrikes() {
	s.mu.Lock()
	s.strikes = 0
	s.mu.Unlock()
}
