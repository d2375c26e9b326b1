package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sourcing_backend/internal/events"
	"sourcing_backend/internal/leads/domain"
	leadrepo "sourcing_backend/internal/leads/repository"
	"sourcing_backend/internal/payments"
	profilerepo "sourcing_backend/internal/profiles/repository"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/lock"
	"sourcing_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type fakeLeads struct {
	mu      sync.Mutex
	leads   []leadrepo.Lead
	markErr error
	marked  [][]uuid.UUID
}

func (f *fakeLeads) ListUnpaidCommission(_ context.Context, payeeID uuid.UUID, class domain.ActorClass) ([]leadrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []leadrepo.Lead
	for _, l := range f.leads {
		if class != domain.ActorPrivileged && l.SourcerID != payeeID {
			continue
		}
		if amount, ok := l.CommissionEntry().Unpaid(class); ok && amount.IsPositive() {
			out = append(out, l)
		}
	}
	return out, nil
}

// MarkCommissionPaid follows the store: only rows still sold and unpaid flip.
func (f *fakeLeads) MarkCommissionPaid(_ context.Context, ids []uuid.UUID, class domain.ActorClass) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return nil, f.markErr
	}
	f.marked = append(f.marked, ids)
	var marked []uuid.UUID
	for i := range f.leads {
		for _, id := range ids {
			l := &f.leads[i]
			if l.ID != id || l.Status != domain.StatusSold {
				continue
			}
			if class == domain.ActorPrivileged && !l.DevCommissionPaid {
				l.DevCommissionPaid = true
				marked = append(marked, id)
			} else if class != domain.ActorPrivileged && !l.CommissionPaid {
				l.CommissionPaid = true
				marked = append(marked, id)
			}
		}
	}
	return marked, nil
}

// revert moves a lead out of sold the way an admin correction does.
func (f *fakeLeads) revert(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads[i].Status = domain.StatusPickedUp
			f.leads[i].CommissionAmount = nil
		}
	}
}

type fakeProfiles struct {
	profiles map[uuid.UUID]profilerepo.Profile
}

func (f fakeProfiles) GetByID(_ context.Context, id uuid.UUID) (profilerepo.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return profilerepo.Profile{}, profilerepo.ErrNotFound
	}
	return p, nil
}

type fakeProcessor struct {
	payments.Disabled
	transfers  []payments.TransferRequest
	err        error
	onTransfer func()
}

func (f *fakeProcessor) Transfer(_ context.Context, req payments.TransferRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.transfers = append(f.transfers, req)
	if f.onTransfer != nil {
		f.onTransfer()
	}
	return "tr_1", nil
}

func (f *fakeProcessor) Currency() string { return "usd" }

type recordingPublisher struct {
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) {
	r.events = append(r.events, e)
}

func soldLead(sourcer uuid.UUID, commission string) leadrepo.Lead {
	amount := decimal.RequireFromString(commission)
	return leadrepo.Lead{
		ID:               uuid.New(),
		SourcerID:        sourcer,
		Status:           domain.StatusSold,
		CommissionAmount: &amount,
	}
}

type fixture struct {
	svc     *Service
	leads   *fakeLeads
	proc    *fakeProcessor
	events  *recordingPublisher
	payee   uuid.UUID
	account string
}

func newFixture(t *testing.T, locker lock.Locker) *fixture {
	t.Helper()
	payee := uuid.New()
	account := "acct_1"
	f := &fixture{
		leads:   &fakeLeads{},
		proc:    &fakeProcessor{},
		events:  &recordingPublisher{},
		payee:   payee,
		account: account,
	}
	profiles := fakeProfiles{profiles: map[uuid.UUID]profilerepo.Profile{
		payee: {ID: payee, FirstName: "Sam", LastName: "Rivera", Email: "sam@example.com", PayoutAccountID: &account},
	}}
	f.svc = New(f.leads, profiles, f.proc, locker, time.Minute, f.events, logger.New("development"))
	return f
}

func (f *fixture) actor() domain.Actor {
	return domain.Actor{ID: f.payee, Class: domain.ActorNormal}
}

func TestSummaryRoundsHalfUp(t *testing.T) {
	f := newFixture(t, lock.NewLocal())
	f.leads.leads = []leadrepo.Lead{
		soldLead(f.payee, "10.005"),
		soldLead(f.payee, "5"),
		soldLead(uuid.New(), "99"),
	}

	summary, err := f.svc.Summary(context.Background(), f.actor())
	if err != nil {
		t.Fatalf("expected summary, got %v", err)
	}
	if summary.AmountCents != 1501 || summary.LeadCount != 2 {
		t.Fatalf("expected 1501 cents over 2 leads, got %d over %d", summary.AmountCents, summary.LeadCount)
	}
	if !summary.Total.Equal(decimal.RequireFromString("15.01")) {
		t.Fatalf("expected total 15.01, got %s", summary.Total)
	}
}

func TestPayoutTransfersAndMarksEveryLead(t *testing.T) {
	f := newFixture(t, lock.NewLocal())
	f.leads.leads = []leadrepo.Lead{soldLead(f.payee, "60"), soldLead(f.payee, "40.5")}

	payout, err := f.svc.RequestPayout(context.Background(), f.actor())
	if err != nil {
		t.Fatalf("expected payout, got %v", err)
	}
	if payout.AmountCents != 10050 || payout.TransferID != "tr_1" {
		t.Fatalf("expected 10050 cents via tr_1, got %+v", payout)
	}
	if len(f.proc.transfers) != 1 || f.proc.transfers[0].Destination != f.account {
		t.Fatalf("expected one transfer to %s, got %+v", f.account, f.proc.transfers)
	}
	if f.proc.transfers[0].IdempotencyKey != IdempotencyKey(f.payee, payout.LeadIDs) {
		t.Fatalf("expected deterministic idempotency key")
	}
	for _, l := range f.leads.leads {
		if !l.CommissionPaid {
			t.Fatalf("expected lead %s marked paid", l.ID)
		}
	}
	if len(f.events.events) != 1 {
		t.Fatalf("expected one payout event, got %d", len(f.events.events))
	}
	if evt, ok := f.events.events[0].(events.CommissionPaidOut); !ok || evt.PayeeEmail != "sam@example.com" {
		t.Fatalf("expected CommissionPaidOut for payee, got %#v", f.events.events[0])
	}

	_, err = f.svc.RequestPayout(context.Background(), f.actor())
	if apperr.GetCode(err) != "no_unpaid_commission" {
		t.Fatalf("expected no_unpaid_commission on second payout, got %v", err)
	}
}

func TestPayoutPreconditions(t *testing.T) {
	t.Run("nothing owed", func(t *testing.T) {
		f := newFixture(t, lock.NewLocal())
		_, err := f.svc.RequestPayout(context.Background(), f.actor())
		if apperr.GetCode(err) != "no_unpaid_commission" {
			t.Fatalf("expected no_unpaid_commission, got %v", err)
		}
	})

	t.Run("no account", func(t *testing.T) {
		f := newFixture(t, lock.NewLocal())
		stranger := uuid.New()
		f.leads.leads = []leadrepo.Lead{soldLead(stranger, "10")}
		_, err := f.svc.RequestPayout(context.Background(), domain.Actor{ID: stranger})
		if apperr.GetCode(err) != "payout_account_not_linked" {
			t.Fatalf("expected payout_account_not_linked, got %v", err)
		}
		if len(f.proc.transfers) != 0 {
			t.Fatalf("expected no transfer")
		}
	})

	t.Run("transfer fails", func(t *testing.T) {
		f := newFixture(t, lock.NewLocal())
		f.leads.leads = []leadrepo.Lead{soldLead(f.payee, "10")}
		f.proc.err = errors.New("card declined")
		_, err := f.svc.RequestPayout(context.Background(), f.actor())
		if apperr.GetCode(err) != "transfer_failed" || apperr.GetKind(err) != apperr.KindExternal {
			t.Fatalf("expected external transfer_failed, got %v", err)
		}
		if len(f.leads.marked) != 0 || f.leads.leads[0].CommissionPaid {
			t.Fatalf("expected no lead mutation after failed transfer")
		}
	})
}

func TestPrivilegedPayoutCollectsDevCommission(t *testing.T) {
	f := newFixture(t, lock.NewLocal())
	dev := decimal.RequireFromString("12")
	other := soldLead(uuid.New(), "0")
	other.CommissionAmount = nil
	other.DevCommissionAmount = &dev
	f.leads.leads = []leadrepo.Lead{other, soldLead(f.payee, "50")}

	payout, err := f.svc.RequestPayout(context.Background(), domain.Actor{ID: f.payee, Class: domain.ActorPrivileged})
	if err != nil {
		t.Fatalf("expected payout, got %v", err)
	}
	if payout.AmountCents != 1200 || len(payout.LeadIDs) != 1 || payout.LeadIDs[0] != other.ID {
		t.Fatalf("expected 1200 cents for the dev lead only, got %+v", payout)
	}
	if !f.leads.leads[0].DevCommissionPaid || f.leads.leads[1].CommissionPaid {
		t.Fatalf("expected only the dev schedule to be marked")
	}
}

func TestConcurrentPayoutIsRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := lock.NewRedis(client, "test:")

	f := newFixture(t, locker)
	f.leads.leads = []leadrepo.Lead{soldLead(f.payee, "10")}

	release, err := locker.Acquire(context.Background(), lockKey(f.actor()), time.Minute)
	if err != nil {
		t.Fatalf("expected to hold the lock, got %v", err)
	}
	_, err = f.svc.RequestPayout(context.Background(), f.actor())
	if apperr.GetCode(err) != "payout_in_progress" {
		t.Fatalf("expected payout_in_progress, got %v", err)
	}

	release()
	if _, err := f.svc.RequestPayout(context.Background(), f.actor()); err != nil {
		t.Fatalf("expected payout after release, got %v", err)
	}
	if mr.Exists("test:" + lockKey(f.actor())) {
		t.Fatalf("expected lock released after payout")
	}
}

func TestSettlementFailureIsReported(t *testing.T) {
	f := newFixture(t, lock.NewLocal())
	f.leads.leads = []leadrepo.Lead{soldLead(f.payee, "10")}
	f.leads.markErr = errors.New("db down")

	_, err := f.svc.RequestPayout(context.Background(), f.actor())
	if apperr.GetCode(err) != "payout_settlement_failed" {
		t.Fatalf("expected payout_settlement_failed, got %v", err)
	}
	if len(f.events.events) != 0 {
		t.Fatalf("expected no payout event when settlement failed")
	}
}

func TestLeadRevertedDuringTransferIsNotPaidTwice(t *testing.T) {
	f := newFixture(t, lock.NewLocal())
	a, b := soldLead(f.payee, "60"), soldLead(f.payee, "40")
	f.leads.leads = []leadrepo.Lead{a, b}
	f.proc.onTransfer = func() { f.leads.revert(b.ID) }

	payout, err := f.svc.RequestPayout(context.Background(), f.actor())
	if err != nil {
		t.Fatalf("expected payout to settle the remaining lead, got %v", err)
	}
	if payout.AmountCents != 10000 {
		t.Fatalf("expected 10000 cents transferred, got %d", payout.AmountCents)
	}
	if !f.leads.leads[0].CommissionPaid {
		t.Fatalf("expected lead A marked paid")
	}

	f.proc.onTransfer = nil
	_, err = f.svc.RequestPayout(context.Background(), f.actor())
	if apperr.GetCode(err) != "no_unpaid_commission" {
		t.Fatalf("expected no_unpaid_commission on retry, got %v", err)
	}
	if len(f.proc.transfers) != 1 {
		t.Fatalf("expected exactly one transfer, got %d", len(f.proc.transfers))
	}
}

func TestIdempotencyKeyIgnoresOrder(t *testing.T) {
	payee := uuid.New()
	a, b := uuid.New(), uuid.New()
	if IdempotencyKey(payee, []uuid.UUID{a, b}) != IdempotencyKey(payee, []uuid.UUID{b, a}) {
		t.Fatalf("expected key independent of lead order")
	}
	if IdempotencyKey(payee, []uuid.UUID{a}) == IdempotencyKey(uuid.New(), []uuid.UUID{a}) {
		t.Fatalf("expected key to depend on payee")
	}
}
