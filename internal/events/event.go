// Package events defines the lead and payout events modules exchange.
// The bus itself lives in platform/events; its types are aliased here so
// modules import a single package.
package events

import (
	"time"

	"sourcing_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Publisher   = events.Publisher
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a sourcer submits a new lead.
type LeadCreated struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	SourcerID    uuid.UUID `json:"sourcerId"`
	SourcerName  string    `json:"sourcerName"`
	Title        string    `json:"title"`
	Address      string    `json:"address"`
	PurchaseText string    `json:"purchasePrice"`
	PickupStart  time.Time `json:"pickupStart"`
	Status       string    `json:"status"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadUpdated is published after every successful lifecycle save,
// including sync-only edits where the status did not change.
type LeadUpdated struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	SourcerID       uuid.UUID `json:"sourcerId"`
	ActorID         uuid.UUID `json:"actorId"`
	Title           string    `json:"title"`
	PreviousStatus  string    `json:"previousStatus"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	CommissionText  string    `json:"commission,omitempty"`
	SourcerEmail    string    `json:"-"`
	SourcerName     string    `json:"-"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

// StatusChanged reports whether the save moved the lead to another status.
func (e LeadUpdated) StatusChanged() bool { return e.PreviousStatus != e.Status }

// LeadDeleted is published after a lead row has been removed.
type LeadDeleted struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	SourcerID uuid.UUID `json:"sourcerId"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }

// =============================================================================
// Commission Domain Events
// =============================================================================

// CommissionPaidOut is published after a transfer succeeded and leads were marked paid.
type CommissionPaidOut struct {
	BaseEvent
	PayeeID     uuid.UUID   `json:"payeeId"`
	PayeeEmail  string      `json:"-"`
	PayeeName   string      `json:"-"`
	TransferID  string      `json:"transferId"`
	AmountCents int64       `json:"amountCents"`
	Currency    string      `json:"currency"`
	LeadIDs     []uuid.UUID `json:"leadIds"`
}

func (e CommissionPaidOut) EventName() string { return "commissions.payout.completed" }
