// Package service computes pickup availability against the shared calendar.
package service

import (
	"context"
	"time"

	"sourcing_backend/internal/calendar"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/logger"
)

// Service serves pickup slots. Results are never cached; each call reads the
// calendar again because external bookings change between calls.
type Service struct {
	cal calendar.Adapter
	loc *time.Location
	now func() time.Time
	log *logger.Logger
}

// New creates the slot service for the business timezone.
func New(cal calendar.Adapter, loc *time.Location, log *logger.Logger) *Service {
	return &Service{cal: cal, loc: loc, now: time.Now, log: log}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Location returns the business timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// AvailableSlots lists free pickup slots for the rolling window.
func (s *Service) AvailableSlots(ctx context.Context) ([]Slot, error) {
	return s.availableExcept(ctx, "")
}

// availableExcept computes free slots as if the event named by ownEventID
// were not on the calendar.
func (s *Service) availableExcept(ctx context.Context, ownEventID string) ([]Slot, error) {
	now := s.now()
	start, end := Window(now, s.loc)
	busy, err := s.cal.ListEvents(ctx, start, end)
	if err != nil {
		return nil, apperr.External("calendar unavailable", err).WithCode("calendar_unavailable").WithOp("appointments.AvailableSlots")
	}
	if ownEventID != "" {
		kept := busy[:0]
		for _, b := range busy {
			if b.EventID != ownEventID {
				kept = append(kept, b)
			}
		}
		busy = kept
	}
	return ComputeAvailableSlots(now, s.loc, busy), nil
}

// CheckSlot verifies a requested pickup window before a lead is saved.
// Malformed windows are rejected. A taken slot is a conflict. When the
// calendar cannot be read the check is skipped with a warning so that
// submission is never blocked by the calendar. ownEventID is the calendar
// event of a lead being rescheduled; it never counts against its own move.
func (s *Service) CheckSlot(ctx context.Context, start, end time.Time, ownEventID string) error {
	if !IsTemplateSlot(start, end, s.loc) {
		return apperr.Validation("pickup window must be a one-hour weekday slot between 09:00 and 17:00").WithCode("invalid_pickup_slot")
	}

	slots, err := s.availableExcept(ctx, ownEventID)
	if err != nil {
		s.log.WithContext(ctx).Warn("pickup slot check skipped", "error", err)
		return nil
	}
	for _, slot := range slots {
		if slot.Start.Equal(start) && slot.End.Equal(end) {
			return nil
		}
	}
	return apperr.Conflict("pickup slot is no longer available").WithCode("pickup_slot_taken")
}
