package repository

import (
	"context"
	"fmt"

	"sourcing_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ListUnpaidCommission selects the sold leads a payee is still owed for.
// Normal payees only see their own leads; the privileged class collects every
// unpaid privileged commission regardless of sourcer. Zero amounts are skipped.
func (r *Repository) ListUnpaidCommission(ctx context.Context, payeeID uuid.UUID, class domain.ActorClass) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` ` + leadFrom + `
		WHERE l.status = $1 AND l.sourcer_id = $2
		  AND l.commission_paid = false AND l.commission_amount IS NOT NULL AND l.commission_amount > 0
		ORDER BY l.sale_date ASC, l.id ASC`
	args := []interface{}{string(domain.StatusSold), payeeID}
	if class == domain.ActorPrivileged {
		query = `SELECT ` + leadColumns + ` ` + leadFrom + `
		WHERE l.status = $1
		  AND l.dev_commission_paid = false AND l.dev_commission_amount IS NOT NULL AND l.dev_commission_amount > 0
		ORDER BY l.sale_date ASC, l.id ASC`
		args = args[:1]
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	return items, rows.Err()
}

// MarkCommissionPaid flips the paid flag of the listed leads that are still
// sold and unpaid, and returns the ids it flipped. Leads that changed since
// selection are left alone; the caller decides how to report them.
func (r *Repository) MarkCommissionPaid(ctx context.Context, ids []uuid.UUID, class domain.ActorClass) ([]uuid.UUID, error) {
	column := "commission_paid"
	if class == domain.ActorPrivileged {
		column = "dev_commission_paid"
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		UPDATE leads SET %[1]s = true, updated_at = now()
		WHERE id = ANY($1) AND status = $2 AND %[1]s = false
		RETURNING id
	`, column), ids, string(domain.StatusSold))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	marked := make([]uuid.UUID, 0, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		marked = append(marked, id)
	}
	return marked, rows.Err()
}
