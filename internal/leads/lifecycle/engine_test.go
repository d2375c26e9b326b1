package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sourcing_backend/internal/calendar"
	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/internal/leads/repository"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeStore struct {
	mu      sync.Mutex
	leads   map[uuid.UUID]repository.Lead
	saveErr error
	saves   int
}

func newFakeStore(leads ...repository.Lead) *fakeStore {
	s := &fakeStore{leads: make(map[uuid.UUID]repository.Lead)}
	for _, l := range leads {
		s.leads[l.ID] = l
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *fakeStore) SaveLifecycle(_ context.Context, id uuid.UUID, expected time.Time, u repository.LifecycleUpdate) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return repository.Lead{}, s.saveErr
	}
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if !lead.UpdatedAt.Equal(expected) {
		return repository.Lead{}, repository.ErrStale
	}
	lead.Title, lead.Address, lead.Phone, lead.Notes, lead.Condition = u.Title, u.Address, u.Phone, u.Notes, u.Condition
	lead.PurchasePrice, lead.RetailPrice = u.PurchasePrice, u.RetailPrice
	lead.PickupStart, lead.PickupEnd, lead.ImageURL = u.PickupStart, u.PickupEnd, u.ImageURL
	lead.Status, lead.CalendarEventID, lead.RejectionReason = u.Status, u.CalendarEventID, u.RejectionReason
	lead.SaleDate, lead.SalePrice = u.SaleDate, u.SalePrice
	lead.CommissionAmount, lead.CommissionPaid = u.CommissionAmount, u.CommissionPaid
	lead.DevCommissionAmount, lead.DevCommissionPaid = u.DevCommissionAmount, u.DevCommissionPaid
	lead.UpdatedAt = lead.UpdatedAt.Add(time.Second)
	s.leads[id] = lead
	s.saves++
	return lead, nil
}

type flakyCalendar struct {
	*calendar.Memory
	failCreate bool
	failDelete bool
	failUpdate bool
	creates    int
	updates    int
}

var errCalendarDown = errors.New("calendar unavailable")

func (f *flakyCalendar) CreateEvent(ctx context.Context, in calendar.EventInput) (string, error) {
	if f.failCreate {
		return "", errCalendarDown
	}
	f.creates++
	return f.Memory.CreateEvent(ctx, in)
}

func (f *flakyCalendar) DeleteEvent(ctx context.Context, id string) error {
	if f.failDelete {
		return errCalendarDown
	}
	return f.Memory.DeleteEvent(ctx, id)
}

func (f *flakyCalendar) UpdateEvent(ctx context.Context, id string, p calendar.EventPatch) error {
	if f.failUpdate {
		return errCalendarDown
	}
	f.updates++
	return f.Memory.UpdateEvent(ctx, id, p)
}

type recordingReconciler struct {
	leadIDs []uuid.UUID
}

func (r *recordingReconciler) ScheduleReconcile(_ context.Context, leadID uuid.UUID, _ string) {
	r.leadIDs = append(r.leadIDs, leadID)
}

type classSet map[uuid.UUID]bool

func (c classSet) IsPrivileged(id uuid.UUID) bool { return c[id] }

type harness struct {
	store      *fakeStore
	cal        *flakyCalendar
	reconciler *recordingReconciler
	engine     *Engine
	lead       repository.Lead
	admin      domain.Actor
}

func newHarness(t *testing.T, privileged bool) *harness {
	t.Helper()
	start := time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC)
	lead := repository.Lead{
		ID:            uuid.New(),
		SourcerID:     uuid.New(),
		Title:         "Mid-century credenza",
		Address:       "12 Main St",
		Phone:         "+13035550100",
		PurchasePrice: decimal.RequireFromString("200"),
		PickupStart:   start,
		PickupEnd:     start.Add(time.Hour),
		Status:        domain.StatusSubmitted,
		CreatedAt:     start.Add(-48 * time.Hour),
		UpdatedAt:     start.Add(-48 * time.Hour),
	}
	h := &harness{
		store:      newFakeStore(lead),
		cal:        &flakyCalendar{Memory: calendar.NewMemory()},
		reconciler: &recordingReconciler{},
		lead:       lead,
		admin:      domain.Actor{ID: uuid.New(), Admin: true},
	}
	rates := Rates{Normal: decimal.RequireFromString("0.20"), Privileged: decimal.RequireFromString("0.20")}
	h.engine = New(h.store, h.cal, classSet{lead.SourcerID: privileged}, rates, h.reconciler, nil, logger.New("development"))
	return h
}

func (h *harness) transition(t *testing.T, to domain.Status, mutate func(*Request)) (Outcome, error) {
	t.Helper()
	req := Request{LeadID: h.lead.ID, Actor: h.admin, Status: &to}
	if mutate != nil {
		mutate(&req)
	}
	return h.engine.Apply(context.Background(), req)
}

func (h *harness) mustTransition(t *testing.T, to domain.Status, mutate func(*Request)) repository.Lead {
	t.Helper()
	out, err := h.transition(t, to, mutate)
	if err != nil {
		t.Fatalf("transition to %q: %v", to, err)
	}
	return out.Lead
}

func assertInvariants(t *testing.T, lead repository.Lead) {
	t.Helper()
	if (lead.CalendarEventID != nil) != domain.IsOnCalendar(lead.Status) {
		t.Fatalf("calendar invariant broken: status=%q eventID=%v", lead.Status, lead.CalendarEventID)
	}
	sold := lead.Status == domain.StatusSold
	if sold != (lead.SaleDate != nil && lead.SalePrice != nil) {
		t.Fatalf("sale invariant broken: status=%q saleDate=%v salePrice=%v", lead.Status, lead.SaleDate, lead.SalePrice)
	}
	if (lead.Status == domain.StatusRejected) != (lead.RejectionReason != nil) {
		t.Fatalf("rejection invariant broken: status=%q reason=%v", lead.Status, lead.RejectionReason)
	}
	if !sold && (lead.CommissionAmount != nil || lead.DevCommissionAmount != nil) {
		t.Fatalf("commission set on unsold lead")
	}
	if lead.CommissionAmount != nil && lead.DevCommissionAmount != nil {
		t.Fatalf("both commission schedules populated")
	}
}

func sale(price string) func(*Request) {
	return func(r *Request) {
		r.Sale = &SaleInput{Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Price: decimal.RequireFromString(price)}
	}
}

func TestApproveRejectReopenScenario(t *testing.T) {
	h := newHarness(t, false)

	approved := h.mustTransition(t, domain.StatusApproved, nil)
	assertInvariants(t, approved)
	if h.cal.Len() != 1 {
		t.Fatalf("expected 1 calendar event, got %d", h.cal.Len())
	}
	ev, ok := h.cal.Get(*approved.CalendarEventID)
	if !ok || ev.Title != "Mid-century credenza" || !ev.Start.Equal(h.lead.PickupStart) {
		t.Fatalf("unexpected event %+v", ev)
	}

	rejected := h.mustTransition(t, domain.StatusRejected, func(r *Request) {
		r.Rejection = &RejectionInput{Reason: "Too expensive"}
	})
	assertInvariants(t, rejected)
	if h.cal.Len() != 0 {
		t.Fatalf("expected event deleted, %d remain", h.cal.Len())
	}
	if *rejected.RejectionReason != "Too expensive" {
		t.Fatalf("expected reason %q, got %q", "Too expensive", *rejected.RejectionReason)
	}

	reopened := h.mustTransition(t, domain.StatusSubmitted, nil)
	assertInvariants(t, reopened)
	if reopened.RejectionReason != nil || reopened.CalendarEventID != nil {
		t.Fatalf("expected reason and event cleared, got %+v", reopened)
	}
}

func TestSoldThenRevertedScenario(t *testing.T) {
	h := newHarness(t, false)
	h.mustTransition(t, domain.StatusApproved, nil)
	h.mustTransition(t, domain.StatusPickedUp, nil)

	sold := h.mustTransition(t, domain.StatusSold, sale("500"))
	assertInvariants(t, sold)
	if sold.CommissionAmount == nil || !sold.CommissionAmount.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("expected commission 60, got %v", sold.CommissionAmount)
	}
	if sold.CommissionPaid {
		t.Fatalf("expected commission unpaid")
	}
	if h.cal.Len() != 1 {
		t.Fatalf("expected sold lead to keep its event")
	}

	reverted := h.mustTransition(t, domain.StatusPickedUp, nil)
	assertInvariants(t, reverted)
	if reverted.SaleDate != nil || reverted.SalePrice != nil || reverted.CommissionAmount != nil || reverted.CommissionPaid {
		t.Fatalf("expected sale side effects cleared, got %+v", reverted)
	}
}

func TestLossMakingSaleEarnsZero(t *testing.T) {
	h := newHarness(t, false)
	sold := h.mustTransition(t, domain.StatusSold, sale("150"))
	if sold.CommissionAmount == nil || !sold.CommissionAmount.IsZero() {
		t.Fatalf("expected zero commission, got %v", sold.CommissionAmount)
	}
}

func TestPrivilegedSourcerCreditsAlternateSchedule(t *testing.T) {
	h := newHarness(t, true)
	sold := h.mustTransition(t, domain.StatusSold, sale("500"))
	assertInvariants(t, sold)
	if sold.CommissionAmount != nil {
		t.Fatalf("expected normal schedule empty")
	}
	if sold.DevCommissionAmount == nil || !sold.DevCommissionAmount.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("expected privileged commission 60, got %v", sold.DevCommissionAmount)
	}
}

func TestSoldRequiresSaleData(t *testing.T) {
	h := newHarness(t, false)
	h.mustTransition(t, domain.StatusApproved, nil)

	_, err := h.transition(t, domain.StatusSold, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	stored, _ := h.store.GetByID(context.Background(), h.lead.ID)
	if stored.Status != domain.StatusApproved {
		t.Fatalf("expected no mutation, status is %q", stored.Status)
	}
	if h.store.saves != 1 {
		t.Fatalf("expected only the approval save, got %d", h.store.saves)
	}
}

func TestRejectedRequiresKnownReason(t *testing.T) {
	h := newHarness(t, false)

	if _, err := h.transition(t, domain.StatusRejected, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error without reason, got %v", err)
	}
	_, err := h.transition(t, domain.StatusRejected, func(r *Request) {
		r.Rejection = &RejectionInput{Reason: "smells funny"}
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for unknown reason, got %v", err)
	}

	rejected := h.mustTransition(t, domain.StatusRejected, func(r *Request) {
		r.Rejection = &RejectionInput{Reason: "too_far_away", Notes: "Two hours north"}
	})
	if *rejected.RejectionReason != "Too far away: Two hours north" {
		t.Fatalf("unexpected reason %q", *rejected.RejectionReason)
	}
}

func TestSyncOnlyEditIsIdempotent(t *testing.T) {
	h := newHarness(t, false)
	approved := h.mustTransition(t, domain.StatusApproved, nil)
	eventID := *approved.CalendarEventID

	title := "Teak credenza"
	newStart := h.lead.PickupStart.Add(2 * time.Hour)
	newEnd := newStart.Add(time.Hour)
	edit := func(r *Request) {
		r.Status = nil
		r.Edits = Edits{Title: &title, PickupStart: &newStart, PickupEnd: &newEnd}
	}

	first := h.mustTransition(t, domain.StatusApproved, edit)
	second := h.mustTransition(t, domain.StatusApproved, edit)

	if *first.CalendarEventID != eventID || *second.CalendarEventID != eventID {
		t.Fatalf("expected event id %s to be kept, got %s and %s", eventID, *first.CalendarEventID, *second.CalendarEventID)
	}
	if h.cal.creates != 1 || h.cal.Len() != 1 {
		t.Fatalf("expected a single create, got %d creates and %d events", h.cal.creates, h.cal.Len())
	}
	if h.cal.updates != 1 {
		t.Fatalf("expected one patch (second call has no changes), got %d", h.cal.updates)
	}
	ev, _ := h.cal.Get(eventID)
	if ev.Title != title || !ev.Start.Equal(newStart) {
		t.Fatalf("expected patched event, got %+v", ev)
	}
}

func TestCalendarCreateFailureDoesNotBlockSave(t *testing.T) {
	h := newHarness(t, false)
	h.cal.failCreate = true

	out, err := h.transition(t, domain.StatusApproved, nil)
	if err != nil {
		t.Fatalf("expected save to succeed, got %v", err)
	}
	if out.CalendarSynced || out.Lead.Status != domain.StatusApproved || out.Lead.CalendarEventID != nil {
		t.Fatalf("expected approved lead without event, got %+v", out)
	}
	if len(h.reconciler.leadIDs) != 1 || h.reconciler.leadIDs[0] != h.lead.ID {
		t.Fatalf("expected reconciliation to be scheduled, got %v", h.reconciler.leadIDs)
	}

	h.cal.failCreate = false
	synced, err := h.engine.Sync(context.Background(), h.lead.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	assertInvariants(t, synced.Lead)
}

func TestCalendarDeleteFailureKeepsEventIDForRetry(t *testing.T) {
	h := newHarness(t, false)
	h.mustTransition(t, domain.StatusApproved, nil)
	h.cal.failDelete = true

	rejected := h.mustTransition(t, domain.StatusRejected, func(r *Request) {
		r.Rejection = &RejectionInput{Reason: "too_low_quality"}
	})
	if rejected.CalendarEventID == nil {
		t.Fatalf("expected event id to be kept after failed delete")
	}
	if len(h.reconciler.leadIDs) != 1 {
		t.Fatalf("expected reconciliation to be scheduled")
	}

	h.cal.failDelete = false
	synced, err := h.engine.Sync(context.Background(), h.lead.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	assertInvariants(t, synced.Lead)
	if h.cal.Len() != 0 {
		t.Fatalf("expected stale event removed")
	}
}

func TestSyncRecreatesVanishedEvent(t *testing.T) {
	h := newHarness(t, false)
	approved := h.mustTransition(t, domain.StatusApproved, nil)
	_ = h.cal.Memory.DeleteEvent(context.Background(), *approved.CalendarEventID)

	synced, err := h.engine.Sync(context.Background(), h.lead.ID)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if *synced.Lead.CalendarEventID == *approved.CalendarEventID {
		t.Fatalf("expected a new event id")
	}
	if _, ok := h.cal.Get(*synced.Lead.CalendarEventID); !ok {
		t.Fatalf("expected recreated event to exist")
	}
}

func TestStaleExpectedVersionIsConflict(t *testing.T) {
	h := newHarness(t, false)
	old := h.lead.UpdatedAt
	h.mustTransition(t, domain.StatusApproved, nil)

	_, err := h.transition(t, domain.StatusPickedUp, func(r *Request) { r.ExpectedUpdatedAt = &old })
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSaveFailureRemovesFreshEvent(t *testing.T) {
	h := newHarness(t, false)
	h.store.saveErr = errors.New("connection reset")

	_, err := h.transition(t, domain.StatusApproved, nil)
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if h.cal.Len() != 0 {
		t.Fatalf("expected orphaned event to be removed, %d remain", h.cal.Len())
	}
}

func TestPaidCommissionCannotBeRewritten(t *testing.T) {
	h := newHarness(t, false)
	h.mustTransition(t, domain.StatusSold, sale("500"))

	h.store.mu.Lock()
	lead := h.store.leads[h.lead.ID]
	lead.CommissionPaid = true
	h.store.leads[h.lead.ID] = lead
	h.store.mu.Unlock()

	if _, err := h.transition(t, domain.StatusSold, sale("700")); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	same := h.mustTransition(t, domain.StatusSold, sale("500"))
	if !same.CommissionPaid {
		t.Fatalf("expected paid flag preserved on unchanged re-save")
	}
}

func TestUnknownLeadIsNotFound(t *testing.T) {
	h := newHarness(t, false)
	approved := domain.StatusApproved
	_, err := h.engine.Apply(context.Background(), Request{LeadID: uuid.New(), Actor: h.admin, Status: &approved})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
