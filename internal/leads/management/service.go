// Package management handles lead CRUD operations.
// Status changes and field edits are delegated to the lifecycle engine so
// that every save keeps the calendar in step.
package management

import (
	"context"
	"errors"
	"io"
	"time"

	"sourcing_backend/internal/adapters/storage"
	"sourcing_backend/internal/calendar"
	"sourcing_backend/internal/events"
	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/internal/leads/lifecycle"
	"sourcing_backend/internal/leads/repository"
	"sourcing_backend/internal/leads/scoring"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/logger"
	"sourcing_backend/platform/phone"
	"sourcing_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the data access interface needed by the management service.
// This is a consumer-driven interface - only what management needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
}

// Lifecycle applies status transitions and edits.
type Lifecycle interface {
	Apply(ctx context.Context, req lifecycle.Request) (lifecycle.Outcome, error)
}

// SlotChecker validates a requested pickup window against availability.
type SlotChecker interface {
	CheckSlot(ctx context.Context, start, end time.Time, ownEventID string) error
}

// Deps bundles the service dependencies. Images may be nil when object
// storage is not configured.
type Deps struct {
	Repo     Repository
	Engine   Lifecycle
	Slots    SlotChecker
	Calendar calendar.Adapter
	Images   storage.ImageStore
	Advisor  scoring.Advisor
	Events   events.Publisher
	Log      *logger.Logger
}

// Service handles lead management operations (CRUD).
type Service struct {
	repo     Repository
	engine   Lifecycle
	slots    SlotChecker
	cal      calendar.Adapter
	images   storage.ImageStore
	advisor  scoring.Advisor
	eventBus events.Publisher
	log      *logger.Logger
}

// New creates a new lead management service.
func New(d Deps) *Service {
	return &Service{
		repo:     d.Repo,
		engine:   d.Engine,
		slots:    d.Slots,
		cal:      d.Calendar,
		images:   d.Images,
		advisor:  d.Advisor,
		eventBus: d.Events,
		log:      d.Log,
	}
}

// ImageUpload is an image attached to a lead.
type ImageUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// CreateInput is a new lead submission.
type CreateInput struct {
	Title         string
	Address       string
	Phone         string
	Notes         string
	Condition     string
	PurchasePrice decimal.Decimal
	RetailPrice   *decimal.Decimal
	PickupStart   time.Time
	PickupEnd     time.Time
	Image         *ImageUpload
}

// Create stores a new lead in submitted status. Submitted leads are not on
// the calendar, so no event is created here.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (repository.Lead, error) {
	const op = "management.Create"

	title := sanitize.Line(in.Title)
	if title == "" {
		return repository.Lead{}, apperr.Validation("title is required").WithCode("invalid_title").WithOp(op)
	}
	if in.PurchasePrice.IsNegative() {
		return repository.Lead{}, apperr.Validation("purchase price cannot be negative").WithCode("invalid_purchase_price").WithOp(op)
	}
	if in.RetailPrice != nil && in.RetailPrice.IsNegative() {
		return repository.Lead{}, apperr.Validation("retail price cannot be negative").WithCode("invalid_retail_price").WithOp(op)
	}
	start, end := in.PickupStart.UTC(), in.PickupEnd.UTC()
	if err := s.slots.CheckSlot(ctx, start, end, ""); err != nil {
		return repository.Lead{}, err
	}

	leadID := uuid.New()
	var imageURL *string
	if in.Image != nil {
		url, err := s.uploadImage(ctx, leadID, *in.Image)
		if err != nil {
			return repository.Lead{}, err
		}
		imageURL = &url
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		ID:            leadID,
		SourcerID:     actor.ID,
		Title:         title,
		Address:       sanitize.Line(in.Address),
		Phone:         phone.NormalizeE164(in.Phone),
		Notes:         sanitize.Text(in.Notes),
		Condition:     sanitize.Line(in.Condition),
		PurchasePrice: in.PurchasePrice,
		RetailPrice:   in.RetailPrice,
		PickupStart:   start,
		PickupEnd:     end,
		ImageURL:      imageURL,
	})
	if err != nil {
		if imageURL != nil {
			s.removeImage(ctx, leadID, *imageURL)
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to save lead", err).WithOp(op)
	}

	s.log.WithContext(ctx).WithLead(lead.ID.String()).Info("lead submitted", "sourcer_id", actor.ID.String())
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadCreated{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			SourcerID:    lead.SourcerID,
			SourcerName:  lead.Sourcer.FullName(),
			Title:        lead.Title,
			Address:      lead.Address,
			PurchaseText: lead.PurchasePrice.StringFixed(2),
			PickupStart:  lead.PickupStart,
			Status:       lead.Status.String(),
		})
	}
	return lead, nil
}

// ListInput filters the lead list.
type ListInput struct {
	Status   *domain.Status
	Page     int
	PageSize int
}

// List returns admins every lead and sourcers their own.
func (s *Service) List(ctx context.Context, actor domain.Actor, in ListInput) ([]repository.Lead, int, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PageSize < 1 {
		in.PageSize = 20
	}
	if in.PageSize > 100 {
		in.PageSize = 100
	}

	params := repository.ListParams{
		Status: in.Status,
		Limit:  in.PageSize,
		Offset: (in.Page - 1) * in.PageSize,
	}
	if !actor.Admin {
		id := actor.ID
		params.SourcerID = &id
	}

	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list leads", err).WithOp("management.List")
	}
	return leads, total, nil
}

// Get returns one lead visible to the actor.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return repository.Lead{}, err
	}
	if err := authorizeRead(actor, lead); err != nil {
		return repository.Lead{}, err
	}
	return lead, nil
}

// UpdateInput edits a lead and, for admins, optionally moves its status.
type UpdateInput struct {
	Edits             lifecycle.Edits
	Status            *domain.Status
	Sale              *lifecycle.SaleInput
	Rejection         *lifecycle.RejectionInput
	ExpectedUpdatedAt *time.Time
}

// Update applies field edits. Sourcers may only edit their own leads while
// they are submitted or approved, and never change the status.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, in UpdateInput) (lifecycle.Outcome, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return lifecycle.Outcome{}, err
	}
	if !actor.Admin {
		if !actor.Owns(lead.SourcerID) {
			return lifecycle.Outcome{}, apperr.Forbidden("you can only edit your own leads")
		}
		if in.Status != nil || in.Sale != nil || in.Rejection != nil {
			return lifecycle.Outcome{}, apperr.Forbidden("only admins can change a lead's status").WithCode("status_change_forbidden")
		}
		if !domain.SourcerCanEdit(lead.Status) {
			return lifecycle.Outcome{}, apperr.Forbidden("lead can no longer be edited").WithCode("lead_locked")
		}
	}
	if in.Edits.Empty() && in.Status == nil {
		return lifecycle.Outcome{}, apperr.Validation("nothing to update").WithCode("empty_update")
	}
	if err := s.checkMovedPickup(ctx, lead, in.Edits); err != nil {
		return lifecycle.Outcome{}, err
	}

	return s.engine.Apply(ctx, lifecycle.Request{
		LeadID:            id,
		Actor:             actor,
		Status:            in.Status,
		Sale:              in.Sale,
		Rejection:         in.Rejection,
		Edits:             in.Edits,
		ExpectedUpdatedAt: in.ExpectedUpdatedAt,
	})
}

// checkMovedPickup runs the slot check when an edit moves the pickup window.
// The lead's own calendar event is ignored so it does not block itself.
func (s *Service) checkMovedPickup(ctx context.Context, lead repository.Lead, edits lifecycle.Edits) error {
	if edits.PickupStart == nil && edits.PickupEnd == nil {
		return nil
	}
	start, end := lead.PickupStart, lead.PickupEnd
	if edits.PickupStart != nil {
		start = *edits.PickupStart
	}
	if edits.PickupEnd != nil {
		end = *edits.PickupEnd
	}
	if start.Equal(lead.PickupStart) && end.Equal(lead.PickupEnd) {
		return nil
	}
	ownEventID := ""
	if lead.CalendarEventID != nil {
		ownEventID = *lead.CalendarEventID
	}
	return s.slots.CheckSlot(ctx, start.UTC(), end.UTC(), ownEventID)
}

// StatusInput is an admin status transition.
type StatusInput struct {
	Status            domain.Status
	Sale              *lifecycle.SaleInput
	Rejection         *lifecycle.RejectionInput
	ExpectedUpdatedAt *time.Time
}

// ChangeStatus moves a lead to another status. Admin only.
func (s *Service) ChangeStatus(ctx context.Context, actor domain.Actor, id uuid.UUID, in StatusInput) (lifecycle.Outcome, error) {
	if !actor.Admin {
		return lifecycle.Outcome{}, apperr.Forbidden("only admins can change a lead's status").WithCode("status_change_forbidden")
	}
	status := in.Status
	return s.engine.Apply(ctx, lifecycle.Request{
		LeadID:            id,
		Actor:             actor,
		Status:            &status,
		Sale:              in.Sale,
		Rejection:         in.Rejection,
		ExpectedUpdatedAt: in.ExpectedUpdatedAt,
	})
}

// ReplaceImage uploads a new image and points the lead at it. The previous
// image is removed once the lead no longer references it.
func (s *Service) ReplaceImage(ctx context.Context, actor domain.Actor, id uuid.UUID, upload ImageUpload) (lifecycle.Outcome, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return lifecycle.Outcome{}, err
	}
	if !actor.Admin && (!actor.Owns(lead.SourcerID) || !domain.SourcerCanEdit(lead.Status)) {
		return lifecycle.Outcome{}, apperr.Forbidden("you cannot change this lead's image")
	}

	url, err := s.uploadImage(ctx, id, upload)
	if err != nil {
		return lifecycle.Outcome{}, err
	}
	out, err := s.engine.Apply(ctx, lifecycle.Request{
		LeadID:            id,
		Actor:             actor,
		Edits:             lifecycle.Edits{ImageURL: &url},
		ExpectedUpdatedAt: &lead.UpdatedAt,
	})
	if err != nil {
		s.removeImage(ctx, id, url)
		return lifecycle.Outcome{}, err
	}
	if lead.ImageURL != nil && *lead.ImageURL != url {
		s.removeImage(ctx, id, *lead.ImageURL)
	}
	return out, nil
}

// Delete removes a lead together with its calendar event and image. The
// calendar event must be gone before the row is, since the row is the only
// reference to it.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	const op = "management.Delete"

	lead, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Admin && !actor.Owns(lead.SourcerID) {
		return apperr.Forbidden("you can only delete your own leads")
	}

	if lead.CalendarEventID != nil {
		eventID := *lead.CalendarEventID
		if err := s.cal.DeleteEvent(ctx, eventID); err != nil {
			s.log.WithContext(ctx).CalendarDrift(id.String(), domain.CalendarDelete.String(), eventID, err)
			return apperr.External("could not remove the pickup from the calendar, try again", err).
				WithCode("calendar_unavailable").WithOp(op)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found").WithOp(op)
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete lead", err).WithOp(op)
	}
	if lead.ImageURL != nil {
		s.removeImage(ctx, id, *lead.ImageURL)
	}

	s.log.WithContext(ctx).WithLead(id.String()).Info("lead deleted", "actor_id", actor.ID.String())
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadDeleted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    id,
			SourcerID: lead.SourcerID,
			ActorID:   actor.ID,
		})
	}
	return nil
}

// Evaluate asks the scoring advisor about a prospective lead.
func (s *Service) Evaluate(ctx context.Context, in scoring.Input) (scoring.Evaluation, error) {
	if s.advisor == nil {
		return scoring.Disabled{}.Evaluate(ctx, in)
	}
	return s.advisor.Evaluate(ctx, in)
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	return lead, nil
}

func (s *Service) uploadImage(ctx context.Context, leadID uuid.UUID, upload ImageUpload) (string, error) {
	if s.images == nil {
		return "", apperr.BadRequest("image uploads are not configured").WithCode("storage_disabled")
	}
	if err := s.images.ValidateContentType(upload.ContentType); err != nil {
		return "", err
	}
	if err := s.images.ValidateFileSize(upload.Size); err != nil {
		return "", err
	}
	url, err := s.images.UploadLeadImage(ctx, leadID, upload.FileName, upload.ContentType, upload.Reader, upload.Size)
	if err != nil {
		return "", apperr.External("image upload failed", err).WithCode("image_upload_failed")
	}
	return url, nil
}

func (s *Service) removeImage(ctx context.Context, leadID uuid.UUID, url string) {
	if s.images == nil {
		return
	}
	if err := s.images.DeleteByURL(context.WithoutCancel(ctx), url); err != nil {
		s.log.WithContext(ctx).Warn("failed to remove lead image", "lead_id", leadID.String(), "url", url, "error", err)
	}
}

func authorizeRead(actor domain.Actor, lead repository.Lead) error {
	if actor.Admin || actor.Owns(lead.SourcerID) {
		return nil
	}
	return apperr.Forbidden("you can only view your own leads")
}
