// Package hub fans lead events out to connected browser clients.
// Admins receive every event; sourcers receive events about their own leads.
package hub

import (
	"sync"

	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
)

// EventType names a pushed event.
type EventType string

const (
	EventLeadCreated EventType = "lead_created"
	EventLeadUpdated EventType = "lead_updated"
	EventLeadDeleted EventType = "lead_deleted"
	EventPayoutSent  EventType = "payout_sent"
)

// Event is the payload written to SSE and WebSocket clients.
type Event struct {
	Type   EventType   `json:"type"`
	LeadID uuid.UUID   `json:"leadId,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	// OwnerID is the sourcer the event concerns.
	OwnerID uuid.UUID `json:"-"`
}

const clientBuffer = 32

type client struct {
	userID uuid.UUID
	admin  bool
	events chan Event
}

// Hub tracks connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *logger.Logger
}

func New(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

func (h *Hub) subscribe(userID uuid.UUID, admin bool) *client {
	c := &client{userID: userID, admin: admin, events: make(chan Event, clientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.events)
	}
}

// Publish delivers the event to every admin and to the owning sourcer.
// Slow clients drop events instead of blocking the publisher.
func (h *Hub) Publish(event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		if !c.admin && c.userID != event.OwnerID {
			continue
		}
		select {
		case c.events <- event:
			delivered++
		default:
			h.log.Warn("push buffer full, event dropped", "user_id", c.userID.String(), "type", string(event.Type))
		}
	}
	return delivered
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.events)
	}
	h.clients = make(map[*client]struct{})
}
