package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sourcing_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrStale is returned when the row changed since the caller read it.
	ErrStale = errors.New("lead was modified concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SourcerProfile is the profile data joined onto every lead read.
type SourcerProfile struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// FullName joins first and last name.
func (p SourcerProfile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Lead struct {
	ID                  uuid.UUID
	SourcerID           uuid.UUID
	Title               string
	Address             string
	Phone               string
	Notes               string
	Condition           string
	PurchasePrice       decimal.Decimal
	RetailPrice         *decimal.Decimal
	SalePrice           *decimal.Decimal
	PickupStart         time.Time
	PickupEnd           time.Time
	CalendarEventID     *string
	Status              domain.Status
	RejectionReason     *string
	SaleDate            *time.Time
	CommissionAmount    *decimal.Decimal
	CommissionPaid      bool
	DevCommissionAmount *decimal.Decimal
	DevCommissionPaid   bool
	ImageURL            *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Sourcer             SourcerProfile
}

// CommissionEntry returns the commission view used by the calculator.
func (l Lead) CommissionEntry() domain.CommissionEntry {
	return domain.CommissionEntry{
		Status:              l.Status,
		CommissionAmount:    l.CommissionAmount,
		CommissionPaid:      l.CommissionPaid,
		DevCommissionAmount: l.DevCommissionAmount,
		DevCommissionPaid:   l.DevCommissionPaid,
	}
}

// EventDetails returns the fields mirrored into the calendar event.
func (l Lead) EventDetails() domain.EventDetails {
	return domain.EventDetails{
		Title:         l.Title,
		Address:       l.Address,
		Phone:         l.Phone,
		PurchasePrice: l.PurchasePrice,
		Notes:         l.Notes,
	}
}

type CreateLeadParams struct {
	ID            uuid.UUID
	SourcerID     uuid.UUID
	Title         string
	Address       string
	Phone         string
	Notes         string
	Condition     string
	PurchasePrice decimal.Decimal
	RetailPrice   *decimal.Decimal
	PickupStart   time.Time
	PickupEnd     time.Time
	ImageURL      *string
}

// LifecycleUpdate is the full mutable state written by one lifecycle save.
type LifecycleUpdate struct {
	Title               string
	Address             string
	Phone               string
	Notes               string
	Condition           string
	PurchasePrice       decimal.Decimal
	RetailPrice         *decimal.Decimal
	PickupStart         time.Time
	PickupEnd           time.Time
	ImageURL            *string
	Status              domain.Status
	CalendarEventID     *string
	RejectionReason     *string
	SaleDate            *time.Time
	SalePrice           *decimal.Decimal
	CommissionAmount    *decimal.Decimal
	CommissionPaid      bool
	DevCommissionAmount *decimal.Decimal
	DevCommissionPaid   bool
}

type ListParams struct {
	SourcerID *uuid.UUID
	Status    *domain.Status
	Limit     int
	Offset    int
}

const leadColumns = `
	l.id, l.sourcer_id, l.title, l.address, l.phone, l.notes, l.condition,
	l.purchase_price, l.retail_price, l.sale_price, l.pickup_start, l.pickup_end,
	l.calendar_event_id, l.status, l.rejection_reason, l.sale_date,
	l.commission_amount, l.commission_paid, l.dev_commission_amount, l.dev_commission_paid,
	l.image_url, l.created_at, l.updated_at,
	COALESCE(p.first_name, ''), COALESCE(p.last_name, ''), COALESCE(p.email, ''), COALESCE(p.phone, '')`

const leadFrom = `FROM leads l LEFT JOIN profiles p ON p.id = l.sourcer_id`

func scanLead(row pgx.Row) (Lead, error) {
	var (
		lead                                 Lead
		status                               string
		purchase, retail, sale, comm, devCom pgtype.Numeric
	)
	err := row.Scan(
		&lead.ID, &lead.SourcerID, &lead.Title, &lead.Address, &lead.Phone, &lead.Notes, &lead.Condition,
		&purchase, &retail, &sale, &lead.PickupStart, &lead.PickupEnd,
		&lead.CalendarEventID, &status, &lead.RejectionReason, &lead.SaleDate,
		&comm, &lead.CommissionPaid, &devCom, &lead.DevCommissionPaid,
		&lead.ImageURL, &lead.CreatedAt, &lead.UpdatedAt,
		&lead.Sourcer.FirstName, &lead.Sourcer.LastName, &lead.Sourcer.Email, &lead.Sourcer.Phone,
	)
	if err != nil {
		return Lead{}, err
	}
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return Lead{}, err
	}
	lead.Status = parsed
	if p := fromNumeric(purchase); p != nil {
		lead.PurchasePrice = *p
	}
	lead.RetailPrice = fromNumeric(retail)
	lead.SalePrice = fromNumeric(sale)
	lead.CommissionAmount = fromNumeric(comm)
	lead.DevCommissionAmount = fromNumeric(devCom)
	return lead, nil
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Profiles are filled in lazily; a first lead must not trip the foreign key.
	if _, err := tx.Exec(ctx, `INSERT INTO profiles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, params.SourcerID); err != nil {
		return Lead{}, fmt.Errorf("ensure profile: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO leads (
			id, sourcer_id, title, address, phone, notes, condition,
			purchase_price, retail_price, pickup_start, pickup_end, image_url, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		params.ID, params.SourcerID, params.Title, params.Address, params.Phone, params.Notes, params.Condition,
		toNumeric(params.PurchasePrice), toNullableNumeric(params.RetailPrice), params.PickupStart, params.PickupEnd,
		params.ImageURL, string(domain.StatusSubmitted),
	)
	if err != nil {
		return Lead{}, fmt.Errorf("insert lead: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return r.GetByID(ctx, params.ID)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` `+leadFrom+` WHERE l.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	where := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if params.SourcerID != nil {
		args = append(args, *params.SourcerID)
		where = append(where, fmt.Sprintf("l.sourcer_id = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, string(*params.Status))
		where = append(where, fmt.Sprintf("l.status = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads l`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`SELECT %s %s%s ORDER BY l.created_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, leadFrom, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

// SaveLifecycle writes the full mutable state of a lead in one statement.
// The write only applies if updated_at still equals expectedUpdatedAt.
func (r *Repository) SaveLifecycle(ctx context.Context, id uuid.UUID, expectedUpdatedAt time.Time, u LifecycleUpdate) (Lead, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			title = $3, address = $4, phone = $5, notes = $6, condition = $7,
			purchase_price = $8, retail_price = $9, pickup_start = $10, pickup_end = $11, image_url = $12,
			status = $13, calendar_event_id = $14, rejection_reason = $15, sale_date = $16, sale_price = $17,
			commission_amount = $18, commission_paid = $19, dev_commission_amount = $20, dev_commission_paid = $21,
			updated_at = now()
		WHERE id = $1 AND updated_at = $2
	`,
		id, expectedUpdatedAt,
		u.Title, u.Address, u.Phone, u.Notes, u.Condition,
		toNumeric(u.PurchasePrice), toNullableNumeric(u.RetailPrice), u.PickupStart, u.PickupEnd, u.ImageURL,
		string(u.Status), u.CalendarEventID, u.RejectionReason, u.SaleDate, toNullableNumeric(u.SalePrice),
		toNullableNumeric(u.CommissionAmount), u.CommissionPaid, toNullableNumeric(u.DevCommissionAmount), u.DevCommissionPaid,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("save lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return Lead{}, err
		}
		return Lead{}, ErrStale
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) SetImageURL(ctx context.Context, id uuid.UUID, imageURL *string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE leads SET image_url = $2, updated_at = now() WHERE id = $1`, id, imageURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCalendarDrift returns leads whose calendar link disagrees with their status.
func (r *Repository) ListCalendarDrift(ctx context.Context, limit int) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id FROM leads
		WHERE (status = ANY($1) AND calendar_event_id IS NULL)
		   OR (status <> ALL($1) AND calendar_event_id IS NOT NULL)
		ORDER BY updated_at ASC
		LIMIT $2
	`, onCalendarStatuses(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func onCalendarStatuses() []string {
	out := make([]string, 0, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		if domain.IsOnCalendar(s) {
			out = append(out, string(s))
		}
	}
	return out
}
