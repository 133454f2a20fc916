package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"hershield/internal/models"
	"hershield/internal/repositories/interfaces"
	"hershield/pkg/logger"
	"hershield/pkg/maps"
	"hershield/pkg/sms"
	"hershield/pkg/telephony"
	"hershield/pkg/websocket"
)

// AlertService performs the emergency fan-out: dial the hotline, then text
// every trusted contact. ShareLocation is the lighter path used for repeated
// live-location updates during an active SOS, which skips the hotline dial.
type AlertService interface {
	Notify(ctx context.Context, alert *models.Alert, rideID *primitive.ObjectID) *models.FanoutReport
	ShareLocation(ctx context.Context, alert *models.Alert) *models.FanoutReport
	ComposeBody(ctx context.Context, source models.TriggerKind, pos *models.Position) string
	ResolveAddress(ctx context.Context, pos *models.Position) string
	History(ctx context.Context, limit int64) ([]models.AlertRecord, error)
}

type alertService struct {
	sender    sms.AlertSender
	dialer    telephony.Dialer
	geocoder  maps.Geocoder
	alertRepo interfaces.AlertRepository
	hub       *websocket.Hub
	logger    *logger.Logger
	clock     Clock
}

func NewAlertService(
	sender sms.AlertSender,
	dialer telephony.Dialer,
	geocoder maps.Geocoder,
	alertRepo interfaces.AlertRepository,
	hub *websocket.Hub,
	clock Clock,
	log *logger.Logger,
) AlertService {
	return &alertService{
		sender:    sender,
		dialer:    dialer,
		geocoder:  geocoder,
		alertRepo: alertRepo,
		hub:       hub,
		logger:    log,
		clock:     clock,
	}
}

// Notify dials the hotline before anything else, then texts each contact.
// A failure on one contact never blocks the others, and an empty contact
// list still gets the hotline dialed.
func (s *alertService) Notify(ctx context.Context, alert *models.Alert, rideID *primitive.ObjectID) *models.FanoutReport {
	report := &models.FanoutReport{}

	if err := s.dialer.Dial(ctx, alert.Hotline); err != nil {
		s.logger.WithError(err).WithField("hotline", alert.Hotline).Error("Failed to dial emergency hotline")
	} else {
		report.Dialed = true
	}

	s.fanout(ctx, alert, report)
	s.record(ctx, alert, rideID, report)

	if s.hub != nil {
		s.hub.Publish(websocket.MessageEscalation, map[string]interface{}{
			"source":   string(alert.Source),
			"dialed":   report.Dialed,
			"notified": report.Notified,
			"failed":   report.Failed,
		})
	}

	s.logger.LogEscalation(string(alert.Source), report.Notified, report.Failed)
	return report
}

// ShareLocation re-sends the alert body to every contact without dialing or
// recording an audit entry. Callers rate-limit it.
func (s *alertService) ShareLocation(ctx context.Context, alert *models.Alert) *models.FanoutReport {
	report := &models.FanoutReport{}
	s.fanout(ctx, alert, report)
	return report
}

func (s *alertService) fanout(ctx context.Context, alert *models.Alert, report *models.FanoutReport) {
	if !s.sender.Supported() {
		// One aggregate notice rather than a failure row per contact.
		report.Unsupported = true
		s.logger.Warn("SMS unsupported on this platform, contacts not notified")
		return
	}

	for _, contact := range alert.Contacts {
		outcome := models.DeliveryOutcome{
			ContactID:   contact.ID,
			PhoneNumber: contact.PhoneNumber,
		}

		result, err := s.sender.Send(ctx, &sms.AlertRequest{
			To:   contact.PhoneNumber,
			Body: alert.Body,
		})
		switch {
		case err != nil:
			outcome.Error = err.Error()
			report.Failed++
			s.logger.WithError(err).WithField("contact", contact.DisplayName).Error("Failed to notify contact")
		case result != nil && result.Error != "":
			outcome.Error = result.Error
			report.Failed++
			s.logger.WithField("contact", contact.DisplayName).Error("Alert rejected by SMS provider")
		default:
			outcome.Delivered = true
			report.Notified++
		}

		report.Outcomes = append(report.Outcomes, outcome)
	}
}

func (s *alertService) record(ctx context.Context, alert *models.Alert, rideID *primitive.ObjectID, report *models.FanoutReport) {
	if s.alertRepo == nil {
		return
	}
	rec := &models.AlertRecord{
		RideID:        rideID,
		Source:        alert.Source,
		Position:      alert.Position,
		Hotline:       alert.Hotline,
		NotifiedCount: report.Notified,
		FailedCount:   report.Failed,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.alertRepo.Create(ctx, rec); err != nil {
		s.logger.WithError(err).Error("Failed to record alert")
	}
}

// ComposeBody builds the alert text: a banner for the trigger source, a map
// link when a position is known, and the street address when the geocoder
// can resolve one.
func (s *alertService) ComposeBody(ctx context.Context, source models.TriggerKind, pos *models.Position) string {
	var b strings.Builder

	switch source {
	case models.TriggerKindVoice:
		b.WriteString("EMERGENCY: a spoken distress keyword was detected.")
	case models.TriggerKindPeriodicCheck:
		b.WriteString("EMERGENCY: a ride safety check-in went unanswered.")
	default:
		b.WriteString("EMERGENCY: SOS triggered.")
	}

	if pos != nil {
		b.WriteString(" Last known location: ")
		b.WriteString(pos.MapLink())

		if addr := s.ResolveAddress(ctx, pos); addr != "" {
			b.WriteString(" (")
			b.WriteString(addr)
			b.WriteString(")")
		}
	} else {
		b.WriteString(" Location unavailable.")
	}

	b.WriteString(fmt.Sprintf(" Sent at %s.", s.clock.Now().Format("15:04 MST, 02 Jan 2006")))
	return b.String()
}

// ResolveAddress turns a position into a street address, or "" when
// geocoding is disabled or fails.
func (s *alertService) ResolveAddress(ctx context.Context, pos *models.Position) string {
	if s.geocoder == nil || pos == nil {
		return ""
	}
	gctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	addr, err := s.geocoder.ReverseGeocode(gctx, pos.Latitude, pos.Longitude)
	if err != nil {
		return ""
	}
	return addr
}

func (s *alertService) History(ctx context.Context, limit int64) ([]models.AlertRecord, error) {
	if s.alertRepo == nil {
		return nil, nil
	}
	records, err := s.alertRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return records, nil
}
