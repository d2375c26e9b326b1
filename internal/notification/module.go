// Package notification reacts to lead and payout events: it pushes them to
// connected clients and sends the transactional emails.
// Domain modules only publish events and never talk to email or push directly.
package notification

import (
	"context"
	"strings"

	"sourcing_backend/internal/email"
	"sourcing_backend/internal/events"
	apphttp "sourcing_backend/internal/http"
	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/internal/notification/hub"
	"sourcing_backend/platform/config"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
)

// AdminDirectory looks up contact emails for admin accounts.
type AdminDirectory interface {
	ListEmails(ctx context.Context, ids []uuid.UUID) ([]string, error)
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender   email.Sender
	cfg      config.NotificationConfig
	hub      *hub.Hub
	admins   AdminDirectory
	adminIDs []uuid.UUID
	log      *logger.Logger
}

func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		cfg:    cfg,
		hub:    hub.New(log),
		log:    log,
	}
}

// SetAdminDirectory adds the profile emails of the given admins to every
// admin notification, next to the configured addresses.
func (m *Module) SetAdminDirectory(dir AdminDirectory, adminIDs []uuid.UUID) {
	m.admins = dir
	m.adminIDs = adminIDs
}

// Hub exposes the push hub so main can close it on shutdown.
func (m *Module) Hub() *hub.Hub { return m.hub }

func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the push transports next to the lead routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/leads/stream", m.hub.ServeSSE)
	ctx.Protected.GET("/leads/ws", m.hub.ServeWS)
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadUpdated{}.EventName(), m)
	bus.Subscribe(events.LeadDeleted{}.EventName(), m)
	bus.Subscribe(events.CommissionPaidOut{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		return m.handleLeadCreated(ctx, e)
	case events.LeadUpdated:
		return m.handleLeadUpdated(ctx, e)
	case events.LeadDeleted:
		m.hub.Publish(hub.Event{Type: hub.EventLeadDeleted, LeadID: e.LeadID, OwnerID: e.SourcerID})
		return nil
	case events.CommissionPaidOut:
		return m.handleCommissionPaidOut(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleLeadCreated(ctx context.Context, e events.LeadCreated) error {
	m.hub.Publish(hub.Event{Type: hub.EventLeadCreated, LeadID: e.LeadID, OwnerID: e.SourcerID, Data: e})

	admins := m.adminRecipients(ctx)
	if len(admins) == 0 {
		return nil
	}
	return m.sender.SendLeadSubmittedEmail(ctx, admins, email.LeadSubmitted{
		SourcerName:  defaultName(e.SourcerName, "A sourcer"),
		Title:        e.Title,
		Address:      e.Address,
		PurchaseText: e.PurchaseText,
		PickupText:   e.PickupStart.UTC().Format("Mon Jan 2, 15:04 MST"),
		LeadURL:      m.leadURL(e.LeadID),
	})
}

func (m *Module) handleLeadUpdated(ctx context.Context, e events.LeadUpdated) error {
	m.hub.Publish(hub.Event{Type: hub.EventLeadUpdated, LeadID: e.LeadID, OwnerID: e.SourcerID, Data: e})

	if !e.StatusChanged() || !emailsSourcer(e.Status) {
		return nil
	}
	to := strings.TrimSpace(e.SourcerEmail)
	if to == "" {
		m.log.Warn("sourcer has no email, status email skipped", "lead_id", e.LeadID.String(), "status", e.Status)
		return nil
	}
	return m.sender.SendLeadStatusEmail(ctx, to, m.adminRecipients(ctx), email.LeadStatusChanged{
		SourcerName:     defaultName(e.SourcerName, "there"),
		Title:           e.Title,
		Status:          e.Status,
		RejectionReason: e.RejectionReason,
		CommissionText:  e.CommissionText,
		LeadURL:         m.leadURL(e.LeadID),
	})
}

func (m *Module) handleCommissionPaidOut(ctx context.Context, e events.CommissionPaidOut) error {
	m.hub.Publish(hub.Event{
		Type:    hub.EventPayoutSent,
		OwnerID: e.PayeeID,
		Data:    map[string]interface{}{"amountCents": e.AmountCents, "currency": e.Currency, "leadCount": len(e.LeadIDs)},
	})

	if strings.TrimSpace(e.PayeeEmail) == "" {
		return nil
	}
	return m.sender.SendPayoutEmail(ctx, e.PayeeEmail, email.PayoutSent{
		PayeeName:   defaultName(e.PayeeName, "there"),
		AmountCents: e.AmountCents,
		Currency:    e.Currency,
		LeadCount:   len(e.LeadIDs),
		TransferID:  e.TransferID,
	})
}

// Sourcers hear about approvals, rejections and sales; other moves are silent.
func emailsSourcer(status string) bool {
	switch domain.Status(status) {
	case domain.StatusApproved, domain.StatusRejected, domain.StatusSold:
		return true
	}
	return false
}

func (m *Module) adminRecipients(ctx context.Context) []string {
	recipients := m.cfg.GetAdminNotifyEmails()
	if m.admins == nil || len(m.adminIDs) == 0 {
		return recipients
	}

	found, err := m.admins.ListEmails(ctx, m.adminIDs)
	if err != nil {
		m.log.Warn("admin profile emails unavailable", "error", err)
		return recipients
	}

	seen := make(map[string]struct{}, len(recipients)+len(found))
	out := make([]string, 0, len(recipients)+len(found))
	for _, addr := range append(append([]string{}, recipients...), found...) {
		key := strings.ToLower(strings.TrimSpace(addr))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func (m *Module) leadURL(id uuid.UUID) string {
	return strings.TrimRight(m.cfg.GetAppBaseURL(), "/") + "/leads/" + id.String()
}

func defaultName(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

var _ apphttp.Module = (*Module)(nil)
