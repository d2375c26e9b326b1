package calendar

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process calendar used when no provider is configured and in tests.
type Memory struct {
	mu     sync.Mutex
	events map[string]EventInput
}

// NewMemory creates an empty calendar.
func NewMemory() *Memory {
	return &Memory{events: make(map[string]EventInput)}
}

func (m *Memory) CreateEvent(_ context.Context, in EventInput) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.events[id] = in
	return id, nil
}

func (m *Memory) UpdateEvent(_ context.Context, eventID string, patch EventPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	if !ok {
		return ErrEventNotFound
	}
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	m.events[eventID] = ev
	return nil
}

func (m *Memory) DeleteEvent(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, eventID)
	return nil
}

func (m *Memory) ListEvents(_ context.Context, start, end time.Time) ([]BusyInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	busy := make([]BusyInterval, 0, len(m.events))
	for id, ev := range m.events {
		if ev.End.After(start) && ev.Start.Before(end) {
			busy = append(busy, BusyInterval{Start: ev.Start, End: ev.End, EventID: id})
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })
	return busy, nil
}

// Get returns a stored event.
func (m *Memory) Get(eventID string) (EventInput, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[eventID]
	return ev, ok
}

// Len returns the number of stored events.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
