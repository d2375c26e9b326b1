package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPlanCalendar(t *testing.T) {
	cases := []struct {
		name     string
		from, to Status
		hasEvent bool
		changed  bool
		want     CalendarAction
	}{
		{"approve creates", StatusSubmitted, StatusApproved, false, false, CalendarCreate},
		{"reject deletes", StatusApproved, StatusRejected, true, false, CalendarDelete},
		{"reopen stays off", StatusRejected, StatusSubmitted, false, false, CalendarNone},
		{"pickup keeps event", StatusApproved, StatusPickedUp, true, false, CalendarNone},
		{"sync-only edit patches", StatusApproved, StatusApproved, true, true, CalendarUpdate},
		{"sync-only without edits", StatusSold, StatusSold, true, false, CalendarNone},
		{"missing event is recreated", StatusPickedUp, StatusPickedUp, false, false, CalendarCreate},
		{"stale event is removed", StatusSubmitted, StatusSubmitted, true, false, CalendarDelete},
		{"pending sold leaves calendar", StatusPickedUp, StatusPendingSold, true, false, CalendarDelete},
		{"unsold revert keeps event", StatusSold, StatusPickedUp, true, false, CalendarNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PlanCalendar(tc.from, tc.to, tc.hasEvent, tc.changed); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestEventDescriptionLayout(t *testing.T) {
	d := EventDetails{
		Title:         "Walnut dresser",
		Address:       "12 Main St",
		Phone:         "(303) 555-0100",
		PurchasePrice: decimal.RequireFromString("200"),
		Notes:         "Back entrance",
	}
	want := "Address: 12 Main St\nCustomer Phone: (303) 555-0100\nPurchase Price: $200.00\nNotes: Back entrance"
	if got := d.Description(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
