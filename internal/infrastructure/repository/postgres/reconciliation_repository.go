package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

type ReconciliationRepository struct {
	db dbtx
}

func NewReconciliationRepository(db dbtx) *ReconciliationRepository {
	return &ReconciliationRepository{db: db}
}

func (r *ReconciliationRepository) CreateException(ctx context.Context, exception *domain.ReconciliationException) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ledger_reconciliations (id, filing_id, account_id, reason, created_at, resolved_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, exception.ID, exception.FilingID, exception.AccountID, exception.Reason, exception.CreatedAt, exception.ResolvedAt)
	if err != nil {
		return fmt.Errorf("create reconciliation exception: %w", err)
	}
	return nil
}

func (r *ReconciliationRepository) ListExceptions(ctx context.Context, includeResolved bool) ([]domain.ReconciliationException, error) {
	query := `
SELECT id, filing_id, account_id, reason, created_at, resolved_at
FROM ledger_reconciliations
`
	if !includeResolved {
		query += "WHERE resolved_at IS NULL\n"
	}
	query += "ORDER BY created_at ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation exceptions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ReconciliationException, 0)
	for rows.Next() {
		var item domain.ReconciliationException
		if err := rows.Scan(&item.ID, &item.FilingID, &item.AccountID, &item.Reason, &item.CreatedAt, &item.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan reconciliation exception: %w", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliation exceptions: %w", err)
	}
	return out, nil
}

// ResolveException only touches open exceptions; resolving twice is rejected.
func (r *ReconciliationRepository) ResolveException(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE ledger_reconciliations
SET resolved_at = $2
WHERE id = $1 AND resolved_at IS NULL
`, id, at)
	if err != nil {
		return fmt.Errorf("resolve reconciliation exception: %w", err)
	}
	return expectOneRow(result, domain.ErrInvalidInput, "resolve reconciliation exception", id)
}
