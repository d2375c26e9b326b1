// Package lifecycle applies lead status transitions and keeps the shared
// pickup calendar in step with the lead store.
//
// Every save goes through Apply, including plain field edits (a sync-only
// transition where the status does not change). The store is the source of
// truth: calendar failures are logged and handed to a Reconciler instead of
// blocking the save.
package lifecycle

import (
	"context"
	"errors"
	"time"

	"sourcing_backend/internal/calendar"
	"sourcing_backend/internal/events"
	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/internal/leads/repository"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClassResolver tells which commission schedule a sourcer's sales credit.
type ClassResolver interface {
	IsPrivileged(userID uuid.UUID) bool
}

// Reconciler receives leads whose calendar link could not be synchronized.
type Reconciler interface {
	ScheduleReconcile(ctx context.Context, leadID uuid.UUID, reason string)
}

// Rates holds the process-wide commission rate of each actor class.
type Rates struct {
	Normal     decimal.Decimal
	Privileged decimal.Decimal
}

func (r Rates) For(class domain.ActorClass) decimal.Decimal {
	if class == domain.ActorPrivileged {
		return r.Privileged
	}
	return r.Normal
}

// SaleInput is the extra data required to enter sold.
type SaleInput struct {
	Date  time.Time
	Price decimal.Decimal
}

// RejectionInput is the extra data required to enter rejected.
type RejectionInput struct {
	Reason string
	Notes  string
}

// Edits changes editable lead fields. Nil fields are left unchanged.
type Edits struct {
	Title            *string
	Address          *string
	Phone            *string
	Notes            *string
	Condition        *string
	PurchasePrice    *decimal.Decimal
	RetailPrice      *decimal.Decimal
	ClearRetailPrice bool
	PickupStart      *time.Time
	PickupEnd        *time.Time
	ImageURL         *string
}

// Empty reports whether no field is being edited.
func (e Edits) Empty() bool {
	return e.Title == nil && e.Address == nil && e.Phone == nil && e.Notes == nil &&
		e.Condition == nil && e.PurchasePrice == nil && e.RetailPrice == nil && !e.ClearRetailPrice &&
		e.PickupStart == nil && e.PickupEnd == nil && e.ImageURL == nil
}

// Request is one lifecycle save.
type Request struct {
	LeadID uuid.UUID
	Actor  domain.Actor
	// Status is the target status; nil keeps the current one (sync-only).
	Status    *domain.Status
	Sale      *SaleInput
	Rejection *RejectionInput
	Edits     Edits
	// ExpectedUpdatedAt, when set, must match the stored row.
	ExpectedUpdatedAt *time.Time
	// VerifyCalendar patches an existing event even when nothing changed,
	// recreating it if it vanished upstream. Used by reconciliation.
	VerifyCalendar bool
}

// Outcome is the refreshed lead plus what happened on the calendar.
type Outcome struct {
	Lead           repository.Lead
	CalendarAction domain.CalendarAction
	CalendarSynced bool
}

// Engine is the lead lifecycle state machine.
type Engine struct {
	store      repository.LifecycleStore
	cal        calendar.Adapter
	classes    ClassResolver
	rates      Rates
	reconciler Reconciler
	events     events.Publisher
	log        *logger.Logger
}

// New creates the engine.
func New(store repository.LifecycleStore, cal calendar.Adapter, classes ClassResolver, rates Rates, reconciler Reconciler, pub events.Publisher, log *logger.Logger) *Engine {
	return &Engine{
		store:      store,
		cal:        cal,
		classes:    classes,
		rates:      rates,
		reconciler: reconciler,
		events:     pub,
		log:        log,
	}
}

// Apply runs one lifecycle save: validate, compute field effects, sync the
// calendar best-effort, persist, and publish the change.
func (e *Engine) Apply(ctx context.Context, req Request) (Outcome, error) {
	const op = "lifecycle.Apply"

	current, err := e.store.GetByID(ctx, req.LeadID)
	if err != nil {
		return Outcome{}, mapStoreError(err, op)
	}
	if req.ExpectedUpdatedAt != nil && !current.UpdatedAt.Equal(*req.ExpectedUpdatedAt) {
		return Outcome{}, apperr.Conflict("lead was modified by someone else, reload and retry").WithCode("stale_lead").WithOp(op)
	}

	target := current.Status
	if req.Status != nil {
		target = *req.Status
	}
	if !target.Valid() {
		return Outcome{}, apperr.Validation("unknown lead status").WithCode("invalid_status").WithOp(op)
	}

	next, err := applyEdits(current, req.Edits)
	if err != nil {
		return Outcome{}, err
	}
	next.Status = target
	next.CalendarEventID = current.CalendarEventID

	if err := e.applySaleFields(current, req, &next); err != nil {
		return Outcome{}, err
	}
	if err := applyRejectionFields(current, req, &next); err != nil {
		return Outcome{}, err
	}

	changed := req.VerifyCalendar || eventFieldsChanged(current, next)
	action := domain.PlanCalendar(current.Status, target, current.CalendarEventID != nil, changed)
	calErr := e.syncCalendar(ctx, current, &next, action)

	saved, err := e.store.SaveLifecycle(ctx, current.ID, current.UpdatedAt, next)
	if err != nil {
		e.handleSaveFailure(ctx, current, next, action, calErr, err)
		return Outcome{}, mapStoreError(err, op)
	}

	log := e.log.WithContext(ctx).WithLead(saved.ID.String())
	if current.Status != target {
		log.Info("lead status changed",
			"from", current.Status.String(),
			"to", target.String(),
			"actor_id", req.Actor.ID.String(),
			"correction", !domain.IsForward(current.Status, target),
		)
	}

	e.publishUpdate(ctx, req.Actor, current.Status, saved)

	return Outcome{
		Lead:           saved,
		CalendarAction: action,
		CalendarSynced: calErr == nil,
	}, nil
}

// Sync re-applies the current state of a lead to the calendar without
// changing any field. Reconciliation calls it for leads that drifted.
func (e *Engine) Sync(ctx context.Context, leadID uuid.UUID) (Outcome, error) {
	return e.Apply(ctx, Request{LeadID: leadID, Actor: domain.System, VerifyCalendar: true})
}

func (e *Engine) applySaleFields(current repository.Lead, req Request, next *repository.LifecycleUpdate) error {
	if next.Status != domain.StatusSold {
		if current.Status == domain.StatusSold && (current.CommissionPaid || current.DevCommissionPaid) {
			e.log.Warn("reverting a sale whose commission was already paid out",
				"lead_id", current.ID.String(),
			)
		}
		next.SaleDate = nil
		next.SalePrice = nil
		next.CommissionAmount = nil
		next.CommissionPaid = false
		next.DevCommissionAmount = nil
		next.DevCommissionPaid = false
		return nil
	}

	if req.Sale == nil {
		if current.Status == domain.StatusSold && current.SaleDate != nil && current.SalePrice != nil {
			// Already sold and no new sale data: keep the recorded sale as is,
			// but a purchase price edit still moves the commission.
			next.SaleDate = current.SaleDate
			next.SalePrice = current.SalePrice
			return e.applyCommission(current, *current.SalePrice, next)
		}
		return apperr.Validation("sale date and sale price are required to mark a lead sold").
			WithCode("sale_data_required").
			WithOp("lifecycle.Apply")
	}

	if req.Sale.Date.IsZero() {
		return apperr.Validation("sale date is required").WithCode("sale_data_required").WithOp("lifecycle.Apply")
	}
	if req.Sale.Price.IsNegative() {
		return apperr.Validation("sale price cannot be negative").WithCode("invalid_sale_price").WithOp("lifecycle.Apply")
	}

	saleDate := req.Sale.Date
	salePrice := req.Sale.Price
	next.SaleDate = &saleDate
	next.SalePrice = &salePrice
	return e.applyCommission(current, salePrice, next)
}

// applyCommission credits exactly one schedule. Entering sold resets the paid
// flag; re-saving a sold lead keeps it, and refuses to move a paid amount.
func (e *Engine) applyCommission(current repository.Lead, salePrice decimal.Decimal, next *repository.LifecycleUpdate) error {
	class := domain.ActorNormal
	if e.classes.IsPrivileged(current.SourcerID) {
		class = domain.ActorPrivileged
	}
	amount := domain.ComputeCommission(salePrice, next.PurchasePrice, e.rates.For(class))
	fields := domain.SoldCommission(class, amount)

	if current.Status == domain.StatusSold {
		prevAmount, prevPaid := current.CommissionAmount, current.CommissionPaid
		if class == domain.ActorPrivileged {
			prevAmount, prevPaid = current.DevCommissionAmount, current.DevCommissionPaid
		}
		if prevPaid {
			if prevAmount == nil || !prevAmount.Equal(amount) {
				return apperr.Conflict("commission for this sale was already paid out and cannot change").
					WithCode("commission_already_paid").
					WithOp("lifecycle.Apply")
			}
			if class == domain.ActorPrivileged {
				fields.DevCommissionPaid = true
			} else {
				fields.CommissionPaid = true
			}
		}
	}

	next.CommissionAmount = fields.CommissionAmount
	next.CommissionPaid = fields.CommissionPaid
	next.DevCommissionAmount = fields.DevCommissionAmount
	next.DevCommissionPaid = fields.DevCommissionPaid
	return nil
}

func applyRejectionFields(current repository.Lead, req Request, next *repository.LifecycleUpdate) error {
	if next.Status != domain.StatusRejected {
		next.RejectionReason = nil
		return nil
	}
	if req.Rejection == nil {
		if current.Status == domain.StatusRejected && current.RejectionReason != nil {
			next.RejectionReason = current.RejectionReason
			return nil
		}
		return apperr.Validation("a rejection reason is required").WithCode("rejection_reason_required").WithOp("lifecycle.Apply")
	}
	reason, err := domain.FormatRejection(req.Rejection.Reason, req.Rejection.Notes)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "unknown rejection reason", err).
			WithCode("invalid_rejection_reason").
			WithDetails(domain.RejectionReasons())
	}
	next.RejectionReason = &reason
	return nil
}

func (e *Engine) syncCalendar(ctx context.Context, current repository.Lead, next *repository.LifecycleUpdate, action domain.CalendarAction) error {
	switch action {
	case domain.CalendarCreate:
		id, err := e.cal.CreateEvent(ctx, eventInput(*next))
		if err != nil {
			e.drift(ctx, current.ID, action, "", err)
			return err
		}
		next.CalendarEventID = &id
		return nil

	case domain.CalendarDelete:
		eventID := *current.CalendarEventID
		if err := e.cal.DeleteEvent(ctx, eventID); err != nil {
			// Keep the id so reconciliation can retry the delete.
			e.drift(ctx, current.ID, action, eventID, err)
			return err
		}
		next.CalendarEventID = nil
		return nil

	case domain.CalendarUpdate:
		eventID := *current.CalendarEventID
		err := e.cal.UpdateEvent(ctx, eventID, eventPatch(*next))
		if errors.Is(err, calendar.ErrEventNotFound) {
			id, createErr := e.cal.CreateEvent(ctx, eventInput(*next))
			if createErr != nil {
				e.drift(ctx, current.ID, domain.CalendarCreate, eventID, createErr)
				return createErr
			}
			e.log.WithContext(ctx).Warn("calendar event vanished upstream, recreated",
				"lead_id", current.ID.String(),
				"old_event_id", eventID,
				"event_id", id,
			)
			next.CalendarEventID = &id
			return nil
		}
		if err != nil {
			e.drift(ctx, current.ID, action, eventID, err)
			return err
		}
		return nil
	}
	return nil
}

func (e *Engine) drift(ctx context.Context, leadID uuid.UUID, action domain.CalendarAction, eventID string, err error) {
	e.log.WithContext(ctx).CalendarDrift(leadID.String(), action.String(), eventID, err)
	if e.reconciler != nil {
		e.reconciler.ScheduleReconcile(ctx, leadID, "calendar "+action.String()+" failed")
	}
}

// handleSaveFailure logs the calendar/store split when the calendar changed
// but the row did not. A freshly created event that no row points to is
// removed again so it does not block the slot.
func (e *Engine) handleSaveFailure(ctx context.Context, current repository.Lead, next repository.LifecycleUpdate, action domain.CalendarAction, calErr, saveErr error) {
	if action == domain.CalendarNone || calErr != nil {
		return
	}
	log := e.log.WithContext(ctx)
	eventID := ""
	if next.CalendarEventID != nil {
		eventID = *next.CalendarEventID
	}
	log.CalendarDrift(current.ID.String(), action.String(), eventID, saveErr)

	if action == domain.CalendarCreate && next.CalendarEventID != nil {
		if err := e.cal.DeleteEvent(ctx, *next.CalendarEventID); err != nil {
			log.Error("orphaned calendar event needs manual removal",
				"lead_id", current.ID.String(),
				"event_id", *next.CalendarEventID,
				"error", err,
			)
		}
		return
	}
	if e.reconciler != nil {
		e.reconciler.ScheduleReconcile(ctx, current.ID, "store save failed after calendar "+action.String())
	}
}

func (e *Engine) publishUpdate(ctx context.Context, actor domain.Actor, previous domain.Status, lead repository.Lead) {
	if e.events == nil {
		return
	}
	evt := events.LeadUpdated{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		SourcerID:      lead.SourcerID,
		ActorID:        actor.ID,
		Title:          lead.Title,
		PreviousStatus: previous.String(),
		Status:         lead.Status.String(),
		SourcerEmail:   lead.Sourcer.Email,
		SourcerName:    lead.Sourcer.FullName(),
	}
	if lead.RejectionReason != nil {
		evt.RejectionReason = *lead.RejectionReason
	}
	if lead.CommissionAmount != nil {
		evt.CommissionText = domain.RoundCents(*lead.CommissionAmount).StringFixed(2)
	} else if lead.DevCommissionAmount != nil {
		evt.CommissionText = domain.RoundCents(*lead.DevCommissionAmount).StringFixed(2)
	}
	e.events.Publish(ctx, evt)
}

func mapStoreError(err error, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("lead not found").WithOp(op)
	case errors.Is(err, repository.ErrStale):
		return apperr.Conflict("lead was modified by someone else, reload and retry").WithCode("stale_lead").WithOp(op)
	default:
		return apperr.Wrap(apperr.KindInternal, "failed to save lead", err).WithOp(op)
	}
}
