package payments

import (
	"context"
	"strings"

	"sourcing_backend/platform/config"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe implements Processor on Stripe Connect express accounts.
type Stripe struct {
	api        *client.API
	currency   string
	profileURL string
}

// NewStripe builds the adapter from config.
func NewStripe(cfg config.PaymentsConfig) *Stripe {
	return NewStripeWithBackends(cfg, nil)
}

// NewStripeWithBackends lets tests point the client at a fake API.
func NewStripeWithBackends(cfg config.PaymentsConfig, backends *stripe.Backends) *Stripe {
	currency := strings.ToLower(strings.TrimSpace(cfg.GetPayoutCurrency()))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &Stripe{
		api:        client.New(cfg.GetStripeSecretKey(), backends),
		currency:   currency,
		profileURL: strings.TrimRight(cfg.GetAppBaseURL(), "/") + "/profile",
	}
}

func (s *Stripe) Currency() string { return s.currency }

// Transfer sends the amount in minor units. The idempotency key makes a
// retried request return the original transfer instead of paying twice.
func (s *Stripe) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(s.currency),
		Destination: stripe.String(req.Destination),
		Description: stripe.String(req.Description),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	transfer, err := s.api.Transfers.New(params)
	if err != nil {
		return "", err
	}
	return transfer.ID, nil
}

func (s *Stripe) CreateAccount(ctx context.Context, req AccountRequest) (string, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String("US"),
		Capabilities: &stripe.AccountCapabilitiesParams{
			Transfers: &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	params.AddMetadata("user_id", req.UserID.String())

	account, err := s.api.Accounts.New(params)
	if err != nil {
		return "", err
	}
	return account.ID, nil
}

func (s *Stripe) OnboardingLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		RefreshURL: stripe.String(s.profileURL),
		ReturnURL:  stripe.String(s.profileURL),
		Type:       stripe.String(string(stripe.AccountLinkTypeAccountOnboarding)),
	}
	params.Context = ctx

	link, err := s.api.AccountLinks.New(params)
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// OnboardingStatus is true once details are submitted and nothing is currently due.
func (s *Stripe) OnboardingStatus(ctx context.Context, accountID string) (bool, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	account, err := s.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return false, err
	}
	if !account.DetailsSubmitted {
		return false, nil
	}
	return account.Requirements == nil || len(account.Requirements.CurrentlyDue) == 0, nil
}

var _ Processor = (*Stripe)(nil)
