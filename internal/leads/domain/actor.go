package domain

import "github.com/google/uuid"

// Actor is the caller of a lead operation, passed explicitly into every call.
type Actor struct {
	ID    uuid.UUID
	Admin bool
	Class ActorClass
}

// System is the actor used by background reconciliation.
var System = Actor{ID: uuid.Nil, Admin: true}

// Owns reports whether the actor submitted the lead.
func (a Actor) Owns(sourcerID uuid.UUID) bool {
	return a.ID != uuid.Nil && a.ID == sourcerID
}
