package transport

import "time"

// TimeSlot is one bookable pickup window.
type TimeSlot struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// AvailableSlotsResponse lists free pickup windows in chronological order.
type AvailableSlotsResponse struct {
	Timezone string     `json:"timezone"`
	Slots    []TimeSlot `json:"slots"`
}
