package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("profile not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Profile struct {
	ID              uuid.UUID
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	PayoutAccountID *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName joins first and last name.
func (p Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type UpsertParams struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

const profileColumns = `id, first_name, last_name, email, phone, payout_account_id, created_at, updated_at`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.PayoutAccountID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

func (r *Repository) Upsert(ctx context.Context, params UpsertParams) (Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx, `
		INSERT INTO profiles (id, first_name, last_name, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			updated_at = now()
		RETURNING `+profileColumns,
		params.ID, params.FirstName, params.LastName, params.Email, params.Phone,
	))
}

// SetPayoutAccount links a payout account, creating the profile row if needed.
func (r *Repository) SetPayoutAccount(ctx context.Context, id uuid.UUID, accountID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (id, payout_account_id) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET payout_account_id = EXCLUDED.payout_account_id, updated_at = now()
	`, id, accountID)
	return err
}

// ListEmails returns the email addresses of the given profiles that have one.
func (r *Repository) ListEmails(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT email FROM profiles WHERE id = ANY($1) AND email <> '' ORDER BY email`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := make([]string, 0, len(ids))
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
