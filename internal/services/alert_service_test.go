package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hershield/internal/models"
	"hershield/pkg/sms"
	"hershield/pkg/telephony"
)

type mockSender struct {
	supported bool
	SendFn    func(ctx context.Context, request *sms.AlertRequest) (*sms.AlertResult, error)
}

func (m *mockSender) Send(ctx context.Context, request *sms.AlertRequest) (*sms.AlertResult, error) {
	return m.SendFn(ctx, request)
}

func (m *mockSender) Supported() bool { return m.supported }

func newTestAlertService(sender sms.AlertSender, dialer telephony.Dialer, repo *mockAlertRepo) AlertService {
	return NewAlertService(sender, dialer, nil, repo, nil, newFakeClock(), testLogger())
}

func fiveContacts() []models.TrustedContact {
	return []models.TrustedContact{
		contactFixture("Amma", "9876543210"),
		contactFixture("Ravi", "9876543211"),
		contactFixture("Priya", "9876543212"),
		contactFixture("Kiran", "9876543213"),
		contactFixture("Deepa", "9876543214"),
	}
}

func TestNotifyDialsHotlineFirstWithEmptyContacts(t *testing.T) {
	dialer := telephony.NewStubDialer()
	svc := newTestAlertService(sms.NewStubSender(true), dialer, &mockAlertRepo{})

	report := svc.Notify(context.Background(), &models.Alert{
		Hotline: "100",
		Source:  models.TriggerKindManual,
	}, nil)

	if !report.Dialed {
		t.Error("hotline must be dialed even with no contacts")
	}
	if got := dialer.Dialed(); len(got) != 1 || got[0] != "100" {
		t.Errorf("dialed = %v, want [100]", got)
	}
	if report.Notified != 0 || report.Failed != 0 {
		t.Errorf("report = %+v, want zero notifications", report)
	}
}

func TestNotifyIsolatesPerContactFailures(t *testing.T) {
	sender := &mockSender{supported: true}
	sender.SendFn = func(_ context.Context, request *sms.AlertRequest) (*sms.AlertResult, error) {
		if request.To == "9876543212" {
			return nil, errors.New("carrier rejected")
		}
		return &sms.AlertResult{MessageID: "ok", Status: "sent"}, nil
	}
	dialer := telephony.NewStubDialer()
	svc := newTestAlertService(sender, dialer, &mockAlertRepo{})

	report := svc.Notify(context.Background(), &models.Alert{
		Body:     "emergency",
		Contacts: fiveContacts(),
		Hotline:  "100",
		Source:   models.TriggerKindManual,
	}, nil)

	if report.Notified != 4 || report.Failed != 1 {
		t.Errorf("notified/failed = %d/%d, want 4/1", report.Notified, report.Failed)
	}
	if !report.Dialed {
		t.Error("one failed contact must not block the hotline dial")
	}
	if len(report.Outcomes) != 5 {
		t.Fatalf("outcomes = %d, want 5", len(report.Outcomes))
	}
	if report.Outcomes[2].Delivered || report.Outcomes[2].Error == "" {
		t.Errorf("third outcome should record the failure, got %+v", report.Outcomes[2])
	}
}

func TestNotifyDialFailureStillFansOut(t *testing.T) {
	dialer := telephony.NewStubDialer()
	dialer.Fail(errors.New("no dial capability"))
	svc := newTestAlertService(sms.NewStubSender(true), dialer, &mockAlertRepo{})

	report := svc.Notify(context.Background(), &models.Alert{
		Body:     "emergency",
		Contacts: fiveContacts(),
		Hotline:  "100",
		Source:   models.TriggerKindVoice,
	}, nil)

	if report.Dialed {
		t.Error("Dialed should be false when the dial fails")
	}
	if report.Notified != 5 {
		t.Errorf("notified = %d, want 5", report.Notified)
	}
}

func TestNotifyUnsupportedSenderAggregates(t *testing.T) {
	dialer := telephony.NewStubDialer()
	svc := newTestAlertService(sms.NewStubSender(false), dialer, &mockAlertRepo{})

	report := svc.Notify(context.Background(), &models.Alert{
		Body:     "emergency",
		Contacts: fiveContacts(),
		Hotline:  "100",
		Source:   models.TriggerKindManual,
	}, nil)

	if !report.Unsupported {
		t.Error("report should carry the aggregate unsupported notice")
	}
	if report.Failed != 0 || len(report.Outcomes) != 0 {
		t.Errorf("unsupported must not produce per-contact failures, got %+v", report)
	}
	if !report.Dialed {
		t.Error("hotline dial is independent of SMS support")
	}
}

func TestNotifyRecordsAuditEntry(t *testing.T) {
	repo := &mockAlertRepo{}
	svc := newTestAlertService(sms.NewStubSender(true), telephony.NewStubDialer(), repo)

	pos := positionAt(time.Now(), 17.38, 78.48)
	svc.Notify(context.Background(), &models.Alert{
		Body:     "emergency",
		Contacts: fiveContacts(),
		Hotline:  "100",
		Position: &pos,
		Source:   models.TriggerKindPeriodicCheck,
	}, nil)

	records, _ := repo.List(context.Background(), 10)
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.Source != models.TriggerKindPeriodicCheck || rec.NotifiedCount != 5 || rec.Hotline != "100" {
		t.Errorf("record = %+v", rec)
	}
}

func TestShareLocationSkipsDialAndAudit(t *testing.T) {
	repo := &mockAlertRepo{}
	dialer := telephony.NewStubDialer()
	svc := newTestAlertService(sms.NewStubSender(true), dialer, repo)

	report := svc.ShareLocation(context.Background(), &models.Alert{
		Body:     "location update",
		Contacts: fiveContacts(),
		Source:   models.TriggerKindManual,
	})

	if report.Notified != 5 {
		t.Errorf("notified = %d, want 5", report.Notified)
	}
	if len(dialer.Dialed()) != 0 {
		t.Error("location refresh must not redial the hotline")
	}
	if records, _ := repo.List(context.Background(), 10); len(records) != 0 {
		t.Error("location refresh must not append audit entries")
	}
}

func TestComposeBodyIncludesMapLink(t *testing.T) {
	svc := newTestAlertService(sms.NewStubSender(true), telephony.NewStubDialer(), nil)

	pos := positionAt(time.Now(), 17.385044, 78.486671)
	body := svc.ComposeBody(context.Background(), models.TriggerKindManual, &pos)

	if !strings.Contains(body, "openstreetmap.org") {
		t.Errorf("body should embed the map link, got %q", body)
	}
	if !strings.Contains(body, "SOS") {
		t.Errorf("body should carry the SOS banner, got %q", body)
	}
}

func TestComposeBodyWithoutPosition(t *testing.T) {
	svc := newTestAlertService(sms.NewStubSender(true), telephony.NewStubDialer(), nil)

	body := svc.ComposeBody(context.Background(), models.TriggerKindVoice, nil)
	if !strings.Contains(body, "Location unavailable") {
		t.Errorf("body should state missing location, got %q", body)
	}
	if !strings.Contains(body, "distress keyword") {
		t.Errorf("body should carry the voice banner, got %q", body)
	}
}
