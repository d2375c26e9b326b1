// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"fmt"
	"strings"
)

// Status is the closed set of lead lifecycle states. The string values are
// the persisted representation.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusPickedUp    Status = "picked up"
	StatusPendingSold Status = "pending sold"
	StatusSold        Status = "sold"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusSubmitted,
	StatusApproved,
	StatusPickedUp,
	StatusPendingSold,
	StatusSold,
	StatusRejected,
}

// ParseStatus converts persisted or user input into a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown lead status %q", raw)
	}
	return s, nil
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusRejected, StatusPickedUp, StatusPendingSold, StatusSold:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// IsOnCalendar reports whether a lead in status s must own a calendar event.
// Every status is listed; callers validate s first, so anything else panics.
func IsOnCalendar(s Status) bool {
	switch s {
	case StatusApproved, StatusPickedUp, StatusSold:
		return true
	case StatusSubmitted, StatusRejected, StatusPendingSold:
		return false
	}
	panic(fmt.Sprintf("lead status %q has no calendar rule", string(s)))
}

// IsTerminal reports whether s ends the normal flow. Admins can still revert it.
func IsTerminal(s Status) bool {
	return s == StatusRejected || s == StatusSold
}

// SourcerCanEdit reports whether the owning sourcer may still edit a lead in status s.
func SourcerCanEdit(s Status) bool {
	return s == StatusSubmitted || s == StatusApproved
}

// forward holds the normal-flow successors of each status.
var forward = map[Status][]Status{
	StatusSubmitted:   {StatusApproved, StatusRejected},
	StatusApproved:    {StatusPickedUp, StatusRejected},
	StatusPickedUp:    {StatusPendingSold, StatusSold, StatusRejected},
	StatusPendingSold: {StatusSold, StatusRejected},
}

// NextStatuses returns the normal-flow successors of s.
func NextStatuses(s Status) []Status {
	return append([]Status(nil), forward[s]...)
}

// IsForward reports whether from -> to follows the normal flow.
// Anything else between valid statuses is an admin correction.
func IsForward(from, to Status) bool {
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}
