package service

import (
	"time"

	"sourcing_backend/internal/calendar"
)

// Pickup template: weekday hourly slots from 09:00 to 17:00 local time over a
// rolling window of seven calendar days starting today.
const (
	windowDays = 7
	openHour   = 9
	closeHour  = 17
	slotLength = time.Hour
)

// Slot is a bookable half-open pickup interval.
type Slot struct {
	Start time.Time
	End   time.Time
}

// Window returns the span whose calendar events can block template slots:
// start of today through the end of the last day in the window.
func Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, windowDays)
}

// ComputeAvailableSlots returns every template slot that starts at or after
// now and overlaps none of the busy intervals, in chronological order.
// A slot is free of a busy interval when slot.End <= busy.Start or
// slot.Start >= busy.End, so touching boundaries do not conflict.
func ComputeAvailableSlots(now time.Time, loc *time.Location, busy []calendar.BusyInterval) []Slot {
	local := now.In(loc)
	slots := make([]Slot, 0, windowDays*(closeHour-openHour))

	for day := 0; day < windowDays; day++ {
		date := time.Date(local.Year(), local.Month(), local.Day()+day, 0, 0, 0, 0, loc)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		for hour := openHour; hour < closeHour; hour++ {
			start := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, loc)
			end := start.Add(slotLength)

			if day == 0 && start.Before(now) {
				continue
			}
			if overlapsAny(start, end, busy) {
				continue
			}
			slots = append(slots, Slot{Start: start, End: end})
		}
	}

	return slots
}

func overlapsAny(start, end time.Time, busy []calendar.BusyInterval) bool {
	for _, b := range busy {
		free := !end.After(b.Start) || !start.Before(b.End)
		if !free {
			return true
		}
	}
	return false
}

// IsTemplateSlot reports whether [start, end) is shaped like a template slot:
// one hour, on the hour, on a weekday, within business hours.
func IsTemplateSlot(start, end time.Time, loc *time.Location) bool {
	local := start.In(loc)
	if end.Sub(start) != slotLength || local.Minute() != 0 || local.Second() != 0 || local.Nanosecond() != 0 {
		return false
	}
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return local.Hour() >= openHour && local.Hour() < closeHour
}
