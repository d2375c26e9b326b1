// Package payments moves commission money to connected payout accounts.
package payments

import (
	"context"

	"sourcing_backend/platform/apperr"

	"github.com/google/uuid"
)

// TransferRequest is one payout to a connected account.
type TransferRequest struct {
	Destination    string
	AmountCents    int64
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

// AccountRequest identifies the payee an express account is opened for.
type AccountRequest struct {
	UserID uuid.UUID
	Email  string
}

// Processor is the payment transfer port.
type Processor interface {
	Transfer(ctx context.Context, req TransferRequest) (string, error)
	CreateAccount(ctx context.Context, req AccountRequest) (string, error)
	OnboardingLink(ctx context.Context, accountID string) (string, error)
	OnboardingStatus(ctx context.Context, accountID string) (bool, error)
	Currency() string
}

// Disabled is used when no processor key is configured.
type Disabled struct{}

func (Disabled) Transfer(context.Context, TransferRequest) (string, error) {
	return "", errDisabled()
}

func (Disabled) CreateAccount(context.Context, AccountRequest) (string, error) {
	return "", errDisabled()
}

func (Disabled) OnboardingLink(context.Context, string) (string, error) {
	return "", errDisabled()
}

func (Disabled) OnboardingStatus(context.Context, string) (bool, error) {
	return false, errDisabled()
}

func (Disabled) Currency() string { return "usd" }

func errDisabled() error {
	return apperr.BadRequest("payouts are not configured").WithCode("payments_disabled")
}
