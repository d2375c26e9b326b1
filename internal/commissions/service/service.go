// Package service computes unpaid commission and pays it out.
//
// A payout selects the payee's unpaid sold leads, transfers their summed
// amount in one call, and only then marks every selected lead paid. A
// per-payee lock keeps two payouts for the same money from overlapping.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strconv"
	"time"

	"sourcing_backend/internal/events"
	"sourcing_backend/internal/leads/domain"
	leadrepo "sourcing_backend/internal/leads/repository"
	"sourcing_backend/internal/payments"
	profilerepo "sourcing_backend/internal/profiles/repository"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/lock"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const defaultLockTTL = 2 * time.Minute

// ProfileReader resolves the payee's payout destination.
type ProfileReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (profilerepo.Profile, error)
}

type Service struct {
	leads    leadrepo.CommissionStore
	profiles ProfileReader
	payments payments.Processor
	locker   lock.Locker
	lockTTL  time.Duration
	events   events.Publisher
	log      *logger.Logger
}

func New(leads leadrepo.CommissionStore, profiles ProfileReader, processor payments.Processor, locker lock.Locker, lockTTL time.Duration, pub events.Publisher, log *logger.Logger) *Service {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Service{
		leads:    leads,
		profiles: profiles,
		payments: processor,
		locker:   locker,
		lockTTL:  lockTTL,
		events:   pub,
		log:      log,
	}
}

// Summary is the actor's unpaid commission.
type Summary struct {
	Class       domain.ActorClass
	Total       decimal.Decimal
	AmountCents int64
	LeadCount   int
}

func (s *Service) Summary(ctx context.Context, actor domain.Actor) (Summary, error) {
	leads, err := s.leads.ListUnpaidCommission(ctx, actor.ID, actor.Class)
	if err != nil {
		return Summary{}, apperr.Wrap(apperr.KindInternal, "failed to load commission", err).WithOp("commissions.Summary")
	}
	total := unpaidTotal(leads, actor.Class)
	return Summary{
		Class:       actor.Class,
		Total:       domain.RoundCents(total),
		AmountCents: domain.ToCents(total),
		LeadCount:   len(leads),
	}, nil
}

// Payout is a completed transfer.
type Payout struct {
	TransferID  string
	AmountCents int64
	Currency    string
	LeadIDs     []uuid.UUID
}

// RequestPayout transfers the actor's unpaid commission. Failures name the
// precondition that failed: no_unpaid_commission, payout_account_not_linked,
// transfer_failed. A failed transfer mutates nothing.
func (s *Service) RequestPayout(ctx context.Context, actor domain.Actor) (Payout, error) {
	const op = "commissions.RequestPayout"
	log := s.log.WithContext(ctx)

	release, err := s.locker.Acquire(ctx, lockKey(actor), s.lockTTL)
	if errors.Is(err, lock.ErrHeld) {
		return Payout{}, apperr.Conflict("a payout is already in progress").WithCode("payout_in_progress").WithOp(op)
	}
	if err != nil {
		return Payout{}, apperr.Wrap(apperr.KindInternal, "failed to start payout", err).WithOp(op)
	}
	defer release()

	var (
		profile    profilerepo.Profile
		profileErr error
		leads      []leadrepo.Lead
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, profileErr = s.profiles.GetByID(gctx, actor.ID)
		if profileErr != nil && !errors.Is(profileErr, profilerepo.ErrNotFound) {
			return profileErr
		}
		return nil
	})
	g.Go(func() error {
		var err error
		leads, err = s.leads.ListUnpaidCommission(gctx, actor.ID, actor.Class)
		return err
	})
	if err := g.Wait(); err != nil {
		return Payout{}, apperr.Wrap(apperr.KindInternal, "failed to load payout data", err).WithOp(op)
	}

	cents := domain.ToCents(unpaidTotal(leads, actor.Class))
	if len(leads) == 0 || cents <= 0 {
		return Payout{}, apperr.Validation("no unpaid commission found").WithCode("no_unpaid_commission").WithOp(op)
	}
	if profileErr != nil || profile.PayoutAccountID == nil || *profile.PayoutAccountID == "" {
		return Payout{}, apperr.Validation("no payout account linked, finish onboarding first").
			WithCode("payout_account_not_linked").
			WithOp(op)
	}

	ids := leadIDs(leads)
	transferID, err := s.payments.Transfer(ctx, payments.TransferRequest{
		Destination:    *profile.PayoutAccountID,
		AmountCents:    cents,
		Description:    "Sourcer commission payout",
		IdempotencyKey: IdempotencyKey(actor.ID, ids),
		Metadata: map[string]string{
			"payee_id":   actor.ID.String(),
			"lead_count": strconv.Itoa(len(ids)),
		},
	})
	if err != nil {
		log.PayoutEvent(actor.ID.String(), cents, len(ids), "", err)
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return Payout{}, err
		}
		return Payout{}, apperr.External("payout transfer failed", err).WithCode("transfer_failed").WithOp(op)
	}

	// The transfer went through; settle with a context that survives the request.
	settleCtx := context.WithoutCancel(ctx)
	marked, err := s.leads.MarkCommissionPaid(settleCtx, ids, actor.Class)
	if err != nil {
		log.Error("payout transferred but leads not marked paid",
			"payee_id", actor.ID.String(),
			"transfer_id", transferID,
			"lead_ids", ids,
			"error", err,
		)
		return Payout{}, apperr.Wrap(apperr.KindInternal, "payout sent but could not be recorded", err).
			WithCode("payout_settlement_failed").
			WithOp(op)
	}
	if dropped := missing(ids, marked); len(dropped) > 0 {
		// The money already moved for these leads. Marking the rest keeps a
		// retry from selecting them under a new idempotency key.
		log.Error("payout covered leads that changed during the transfer",
			"payee_id", actor.ID.String(),
			"transfer_id", transferID,
			"lead_ids", dropped,
		)
	}
	log.PayoutEvent(actor.ID.String(), cents, len(ids), transferID, nil)

	payout := Payout{
		TransferID:  transferID,
		AmountCents: cents,
		Currency:    s.payments.Currency(),
		LeadIDs:     ids,
	}
	if s.events != nil {
		s.events.Publish(settleCtx, events.CommissionPaidOut{
			BaseEvent:   events.NewBaseEvent(),
			PayeeID:     actor.ID,
			PayeeEmail:  profile.Email,
			PayeeName:   profile.FullName(),
			TransferID:  transferID,
			AmountCents: cents,
			Currency:    payout.Currency,
			LeadIDs:     ids,
		})
	}
	return payout, nil
}

// IdempotencyKey is stable for the same payee and lead selection, so a
// retried request cannot pay the same leads twice.
func IdempotencyKey(payeeID uuid.UUID, ids []uuid.UUID) string {
	sorted := make([]string, len(ids))
	for i, id := range ids {
		sorted[i] = id.String()
	}
	sort.Strings(sorted)

	h := sha256.New()
	h.Write([]byte(payeeID.String()))
	for _, id := range sorted {
		h.Write([]byte{':'})
		h.Write([]byte(id))
	}
	return "payout-" + hex.EncodeToString(h.Sum(nil))
}

// The privileged schedule is one shared pool, so its payouts share a lock.
func lockKey(actor domain.Actor) string {
	if actor.Class == domain.ActorPrivileged {
		return "payout:privileged"
	}
	return "payout:" + actor.ID.String()
}

func unpaidTotal(leads []leadrepo.Lead, class domain.ActorClass) decimal.Decimal {
	entries := make([]domain.CommissionEntry, len(leads))
	for i, l := range leads {
		entries[i] = l.CommissionEntry()
	}
	return domain.ComputeUnpaidTotal(entries, class)
}

func leadIDs(leads []leadrepo.Lead) []uuid.UUID {
	ids := make([]uuid.UUID, len(leads))
	for i, l := range leads {
		ids[i] = l.ID
	}
	return ids
}

func missing(want, got []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(got))
	for _, id := range got {
		seen[id] = struct{}{}
	}
	var out []uuid.UUID
	for _, id := range want {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
