package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CalendarAction is the calendar side effect a transition requires.
type CalendarAction int

const (
	CalendarNone CalendarAction = iota
	CalendarCreate
	CalendarUpdate
	CalendarDelete
)

func (a CalendarAction) String() string {
	switch a {
	case CalendarCreate:
		return "create"
	case CalendarUpdate:
		return "update"
	case CalendarDelete:
		return "delete"
	default:
		return "none"
	}
}

// PlanCalendar decides the calendar operation for a save that moves a lead
// from one status to another. hasEvent reports whether an event id is stored
// and eventFieldsChanged whether summary, description or pickup window changed.
//
// The plan always restores calendar_event_id != nil <=> IsOnCalendar(to):
// a lead that should be on the calendar without an event gets one, and an
// event left behind by an earlier failed delete is removed.
func PlanCalendar(from, to Status, hasEvent, eventFieldsChanged bool) CalendarAction {
	willBeOn := IsOnCalendar(to)
	switch {
	case willBeOn && !hasEvent:
		return CalendarCreate
	case !willBeOn && hasEvent:
		return CalendarDelete
	case willBeOn && hasEvent && eventFieldsChanged:
		return CalendarUpdate
	default:
		return CalendarNone
	}
}

// EventDetails is the lead data that is mirrored into a calendar event.
type EventDetails struct {
	Title         string
	Address       string
	Phone         string
	PurchasePrice decimal.Decimal
	Notes         string
}

// Description renders the structured event description.
func (d EventDetails) Description() string {
	var b strings.Builder
	b.WriteString("Address: ")
	b.WriteString(d.Address)
	b.WriteString("\nCustomer Phone: ")
	b.WriteString(d.Phone)
	b.WriteString("\nPurchase Price: $")
	b.WriteString(d.PurchasePrice.StringFixed(2))
	b.WriteString("\nNotes: ")
	b.WriteString(d.Notes)
	return b.String()
}
