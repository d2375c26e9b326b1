// Package service holds sourcer profiles and payout account onboarding.
package service

import (
	"context"
	"errors"
	"strings"

	"sourcing_backend/internal/payments"
	"sourcing_backend/internal/profiles/repository"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/logger"
	"sourcing_backend/platform/phone"
	"sourcing_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Repository is the profile store used by the service.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Profile, error)
	Upsert(ctx context.Context, params repository.UpsertParams) (repository.Profile, error)
	SetPayoutAccount(ctx context.Context, id uuid.UUID, accountID string) error
}

type Service struct {
	repo     Repository
	payments payments.Processor
	log      *logger.Logger
}

func New(repo Repository, processor payments.Processor, log *logger.Logger) *Service {
	return &Service{repo: repo, payments: processor, log: log}
}

// Get returns the caller's profile. A user who never saved one gets an empty
// profile rather than an error.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (repository.Profile, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Profile{ID: userID}, nil
	}
	if err != nil {
		return repository.Profile{}, apperr.Wrap(apperr.KindInternal, "failed to load profile", err).WithOp("profiles.Get")
	}
	return profile, nil
}

type UpdateInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

func (s *Service) Update(ctx context.Context, userID uuid.UUID, in UpdateInput) (repository.Profile, error) {
	first := sanitize.Line(in.FirstName)
	last := sanitize.Line(in.LastName)
	if first == "" || last == "" {
		return repository.Profile{}, apperr.Validation("first and last name are required").WithCode("invalid_name")
	}
	normalized := phone.NormalizeE164(in.Phone)
	if normalized == "" {
		return repository.Profile{}, apperr.Validation("phone number is invalid").WithCode("invalid_phone")
	}

	profile, err := s.repo.Upsert(ctx, repository.UpsertParams{
		ID:        userID,
		FirstName: first,
		LastName:  last,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     normalized,
	})
	if err != nil {
		return repository.Profile{}, apperr.Wrap(apperr.KindInternal, "failed to save profile", err).WithOp("profiles.Update")
	}
	return profile, nil
}

// StartOnboarding opens an express payout account on first use and returns
// a hosted onboarding link for it.
func (s *Service) StartOnboarding(ctx context.Context, userID uuid.UUID) (string, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	accountID := ""
	if profile.PayoutAccountID != nil {
		accountID = *profile.PayoutAccountID
	}
	if accountID == "" {
		accountID, err = s.payments.CreateAccount(ctx, payments.AccountRequest{UserID: userID, Email: profile.Email})
		if err != nil {
			return "", providerError("failed to create payout account", err)
		}
		if err := s.repo.SetPayoutAccount(ctx, userID, accountID); err != nil {
			s.log.WithContext(ctx).Error("payout account created but not stored",
				"user_id", userID.String(),
				"account_id", accountID,
				"error", err,
			)
			return "", apperr.Wrap(apperr.KindInternal, "failed to update profile", err).WithOp("profiles.StartOnboarding")
		}
		s.log.WithContext(ctx).Info("payout account created", "user_id", userID.String(), "account_id", accountID)
	}

	url, err := s.payments.OnboardingLink(ctx, accountID)
	if err != nil {
		return "", providerError("failed to create onboarding link", err)
	}
	return url, nil
}

// PayoutStatus describes the caller's payout account.
type PayoutStatus struct {
	Linked    bool
	Onboarded bool
}

func (s *Service) PayoutStatus(ctx context.Context, userID uuid.UUID) (PayoutStatus, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return PayoutStatus{}, err
	}
	if profile.PayoutAccountID == nil || *profile.PayoutAccountID == "" {
		return PayoutStatus{}, nil
	}
	onboarded, err := s.payments.OnboardingStatus(ctx, *profile.PayoutAccountID)
	if err != nil {
		return PayoutStatus{}, providerError("failed to check payout account", err)
	}
	return PayoutStatus{Linked: true, Onboarded: onboarded}, nil
}

// providerError keeps typed errors (such as payments being disabled) and
// wraps everything else as an upstream failure.
func providerError(msg string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.External(msg, err).WithCode("payout_provider_unavailable")
}
