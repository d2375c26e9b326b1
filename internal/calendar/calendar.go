// Package calendar wraps the shared pickup calendar. Events are keyed by the
// opaque id the provider returns; the lead store keeps that id.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrEventNotFound is returned when an event id no longer exists upstream.
var ErrEventNotFound = errors.New("calendar event not found")

// EventInput describes a new pickup event.
type EventInput struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// EventPatch changes only the non-nil fields of an existing event.
type EventPatch struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
}

// BusyInterval is a half-open [Start, End) span during which pickups cannot be booked.
// EventID names the calendar event behind the span so a lead can ignore its
// own booking when it moves.
type BusyInterval struct {
	Start   time.Time
	End     time.Time
	EventID string
}

// Adapter is the calendar protocol the lead core depends on.
type Adapter interface {
	CreateEvent(ctx context.Context, in EventInput) (string, error)
	UpdateEvent(ctx context.Context, eventID string, patch EventPatch) error
	// DeleteEvent succeeds when the event is already gone.
	DeleteEvent(ctx context.Context, eventID string) error
	ListEvents(ctx context.Context, start, end time.Time) ([]BusyInterval, error)
}
