package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskCalendarReconcile re-syncs one lead's calendar event.
const TaskCalendarReconcile = "calendar:reconcile"

type CalendarReconcilePayload struct {
	LeadID string `json:"lead_id"`
	Reason string `json:"reason"`
}

func NewCalendarReconcileTask(payload CalendarReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCalendarReconcile, data), nil
}

func ParseCalendarReconcilePayload(task *asynq.Task) (CalendarReconcilePayload, error) {
	var payload CalendarReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CalendarReconcilePayload{}, err
	}
	return payload, nil
}
