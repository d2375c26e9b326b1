package notification

import (
	"context"
	"testing"
	"time"

	"sourcing_backend/internal/email"
	"sourcing_backend/internal/events"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string          { return "https://app.example.com/" }
func (testNotificationConfig) GetAdminNotifyEmails() []string { return []string{"ops@example.com"} }

type statusMail struct {
	to  string
	cc  []string
	msg email.LeadStatusChanged
}

type testSender struct {
	submitted []email.LeadSubmitted
	statuses  []statusMail
	payouts   []string
}

func (s *testSender) SendLeadSubmittedEmail(_ context.Context, _ []string, msg email.LeadSubmitted) error {
	s.submitted = append(s.submitted, msg)
	return nil
}

func (s *testSender) SendLeadStatusEmail(_ context.Context, to string, cc []string, msg email.LeadStatusChanged) error {
	s.statuses = append(s.statuses, statusMail{to: to, cc: cc, msg: msg})
	return nil
}

func (s *testSender) SendPayoutEmail(_ context.Context, to string, _ email.PayoutSent) error {
	s.payouts = append(s.payouts, to)
	return nil
}

func newModule() (*Module, *testSender) {
	sender := &testSender{}
	return New(sender, testNotificationConfig{}, logger.New("development")), sender
}

func TestLeadCreatedEmailsAdmins(t *testing.T) {
	m, sender := newModule()
	leadID := uuid.New()

	err := m.Handle(context.Background(), events.LeadCreated{
		LeadID:      leadID,
		SourcerID:   uuid.New(),
		Title:       "Oak dresser",
		PickupStart: time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.submitted) != 1 {
		t.Fatalf("expected one admin email, got %d", len(sender.submitted))
	}
	if want := "https://app.example.com/leads/" + leadID.String(); sender.submitted[0].LeadURL != want {
		t.Fatalf("expected lead url %s, got %s", want, sender.submitted[0].LeadURL)
	}
	if sender.submitted[0].SourcerName != "A sourcer" {
		t.Fatalf("expected fallback sourcer name, got %q", sender.submitted[0].SourcerName)
	}
}

func TestStatusEmailOnlyForReviewOutcomes(t *testing.T) {
	tests := []struct {
		from, to string
		email    bool
	}{
		{"submitted", "approved", true},
		{"approved", "rejected", true},
		{"pending sold", "sold", true},
		{"approved", "picked up", false},
		{"picked up", "pending sold", false},
		{"approved", "approved", false},
	}
	for _, tt := range tests {
		m, sender := newModule()
		err := m.Handle(context.Background(), events.LeadUpdated{
			LeadID:         uuid.New(),
			PreviousStatus: tt.from,
			Status:         tt.to,
			SourcerEmail:   "sam@example.com",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := len(sender.statuses) == 1; got != tt.email {
			t.Fatalf("%s -> %s: expected email=%v, got %d emails", tt.from, tt.to, tt.email, len(sender.statuses))
		}
		if tt.email && (sender.statuses[0].to != "sam@example.com" || len(sender.statuses[0].cc) != 1) {
			t.Fatalf("expected sourcer recipient with admin cc, got %+v", sender.statuses[0])
		}
	}
}

func TestStatusEmailSkippedWithoutAddress(t *testing.T) {
	m, sender := newModule()
	if err := m.Handle(context.Background(), events.LeadUpdated{PreviousStatus: "submitted", Status: "approved"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.statuses) != 0 {
		t.Fatalf("expected no email without an address")
	}
}

func TestPayoutEmailsPayee(t *testing.T) {
	m, sender := newModule()
	err := m.Handle(context.Background(), events.CommissionPaidOut{
		PayeeID:     uuid.New(),
		PayeeEmail:  "sam@example.com",
		AmountCents: 6000,
		Currency:    "usd",
		LeadIDs:     []uuid.UUID{uuid.New()},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.payouts) != 1 || sender.payouts[0] != "sam@example.com" {
		t.Fatalf("expected payout email to payee, got %v", sender.payouts)
	}
}

type testDirectory struct {
	emails []string
}

func (d testDirectory) ListEmails(context.Context, []uuid.UUID) ([]string, error) {
	return d.emails, nil
}

func TestAdminRecipientsMergeDirectory(t *testing.T) {
	m, sender := newModule()
	m.SetAdminDirectory(testDirectory{emails: []string{"OPS@example.com", "lead.admin@example.com"}}, []uuid.UUID{uuid.New()})

	got := m.adminRecipients(context.Background())
	if len(got) != 2 || got[0] != "ops@example.com" || got[1] != "lead.admin@example.com" {
		t.Fatalf("expected deduplicated recipients, got %v", got)
	}

	if err := m.Handle(context.Background(), events.LeadCreated{LeadID: uuid.New(), SourcerID: uuid.New()}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(sender.submitted) != 1 {
		t.Fatalf("expected admin email, got %d", len(sender.submitted))
	}
}
