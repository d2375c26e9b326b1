// Package email renders and delivers the transactional emails sent to sourcers and admins.
package email

import (
	"context"
)

// Sender delivers the lead and payout notifications.
type Sender interface {
	SendLeadSubmittedEmail(ctx context.Context, to []string, msg LeadSubmitted) error
	SendLeadStatusEmail(ctx context.Context, to string, cc []string, msg LeadStatusChanged) error
	SendPayoutEmail(ctx context.Context, to string, msg PayoutSent) error
}

// LeadSubmitted is sent to admins when a sourcer submits a lead.
type LeadSubmitted struct {
	SourcerName  string
	Title        string
	Address      string
	PurchaseText string
	PickupText   string
	LeadURL      string
}

// LeadStatusChanged is sent to the owning sourcer when an admin moves a lead.
type LeadStatusChanged struct {
	SourcerName     string
	Title           string
	Status          string
	RejectionReason string
	CommissionText  string
	LeadURL         string
}

// PayoutSent is sent to the payee after a successful transfer.
type PayoutSent struct {
	PayeeName   string
	AmountCents int64
	Currency    string
	LeadCount   int
	TransferID  string
}

type NoopSender struct{}

func (NoopSender) SendLeadSubmittedEmail(ctx context.Context, to []string, msg LeadSubmitted) error {
	return nil
}

func (NoopSender) SendLeadStatusEmail(ctx context.Context, to string, cc []string, msg LeadStatusChanged) error {
	return nil
}

func (NoopSender) SendPayoutEmail(ctx context.Context, to string, msg PayoutSent) error {
	return nil
}

var (
	_ Sender = NoopSender{}
	_ Sender = (*SMTPSender)(nil)
)
