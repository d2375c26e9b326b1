package transport

import (
	"time"

	"github.com/google/uuid"
)

type UpdateProfileRequest struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email,max=254"`
	Phone     string `json:"phone" validate:"required,min=5,max=30"`
}

type ProfileResponse struct {
	ID           uuid.UUID  `json:"id"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Complete     bool       `json:"complete"`
	PayoutLinked bool       `json:"payoutAccountLinked"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

type OnboardingResponse struct {
	URL string `json:"url"`
}

type PayoutStatusResponse struct {
	Linked    bool `json:"linked"`
	Onboarded bool `json:"onboarded"`
}
