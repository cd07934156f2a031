package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

type FilingRepository struct {
	db dbtx
}

func NewFilingRepository(db dbtx) *FilingRepository {
	return &FilingRepository{db: db}
}

const filingColumns = `id, case_ref, account_id, worker_ref, notify_email, jurisdiction, mode, motive, dispute_date, status,
	proxy_id, official_ref, appointment_date, error_code, error_detail, credit_debited, guide, previous_attempt_id,
	created_at, updated_at, completed_at`

func (r *FilingRepository) Create(ctx context.Context, filing *domain.FilingRequest) error {
	jurisdiction, guide, err := marshalFilingDocuments(filing)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO filing_requests (`+filingColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
`,
		filing.ID,
		filing.CaseRef,
		filing.AccountID,
		filing.WorkerRef,
		filing.NotifyEmail,
		jurisdiction,
		string(filing.Mode),
		string(filing.Motive),
		filing.DisputeDate,
		string(filing.Status),
		filing.ProxyID,
		filing.OfficialRef,
		filing.AppointmentDate,
		filing.ErrorCode,
		filing.ErrorDetail,
		filing.CreditDebited,
		guide,
		filing.PreviousAttemptID,
		filing.CreatedAt,
		filing.UpdatedAt,
		filing.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("create filing: %w", err)
	}
	return nil
}

func (r *FilingRepository) GetByID(ctx context.Context, id string) (*domain.FilingRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+filingColumns+` FROM filing_requests WHERE id = $1`, id)
	filing, err := scanFiling(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrFilingNotFound, "get filing", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get filing by id: %w", err)
	}
	return &filing, nil
}

func (r *FilingRepository) ListByCase(ctx context.Context, caseRef string) ([]domain.FilingRequest, error) {
	return r.queryFilings(ctx, "list filings", `SELECT `+filingColumns+` FROM filing_requests WHERE case_ref = $1 ORDER BY created_at ASC, id ASC`, caseRef)
}

func (r *FilingRepository) ListStale(ctx context.Context, status domain.FilingStatus, updatedBefore time.Time) ([]domain.FilingRequest, error) {
	return r.queryFilings(ctx, "list stale filings", `
SELECT `+filingColumns+`
FROM filing_requests
WHERE status = $1 AND updated_at < $2
ORDER BY updated_at ASC, id ASC
`, string(status), updatedBefore)
}

func (r *FilingRepository) queryFilings(ctx context.Context, operation, query string, args ...any) ([]domain.FilingRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	defer rows.Close()

	out := make([]domain.FilingRequest, 0)
	for rows.Next() {
		filing, err := scanFiling(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan filing: %w", operation, err)
		}
		out = append(out, filing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate filings: %w", operation, err)
	}
	return out, nil
}

// UpdateIfStatus is a compare-and-set on status. A miss is reported as
// ErrFilingNotFound or ErrInvalidTransition depending on whether the row exists.
func (r *FilingRepository) UpdateIfStatus(ctx context.Context, filing *domain.FilingRequest, expected domain.FilingStatus) error {
	_, guide, err := marshalFilingDocuments(filing)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE filing_requests
SET mode = $3,
	status = $4,
	proxy_id = $5,
	official_ref = $6,
	appointment_date = $7,
	error_code = $8,
	error_detail = $9,
	credit_debited = $10,
	guide = $11,
	updated_at = $12,
	completed_at = $13
WHERE id = $1 AND status = $2
`,
		filing.ID,
		string(expected),
		string(filing.Mode),
		string(filing.Status),
		filing.ProxyID,
		filing.OfficialRef,
		filing.AppointmentDate,
		filing.ErrorCode,
		filing.ErrorDetail,
		filing.CreditDebited,
		guide,
		filing.UpdatedAt,
		filing.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update filing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update filing rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM filing_requests WHERE id = $1`, filing.ID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WrapError(domain.ErrFilingNotFound, "update filing", fmt.Errorf("id=%s", filing.ID))
		}
		return fmt.Errorf("read filing status: %w", err)
	}
	return domain.WrapError(domain.ErrInvalidTransition, "update filing",
		fmt.Errorf("id=%s status=%s expected=%s", filing.ID, current, expected))
}

func marshalFilingDocuments(filing *domain.FilingRequest) ([]byte, []byte, error) {
	jurisdiction, err := json.Marshal(filing.Jurisdiction)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal jurisdiction: %w", err)
	}
	var guide []byte
	if filing.Guide != nil {
		guide, err = json.Marshal(filing.Guide)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal manual guide: %w", err)
		}
	}
	return jurisdiction, guide, nil
}

func scanFiling(row rowScanner) (domain.FilingRequest, error) {
	var (
		filing       domain.FilingRequest
		jurisdiction []byte
		guide        []byte
		mode         string
		motive       string
		status       string
	)
	err := row.Scan(
		&filing.ID,
		&filing.CaseRef,
		&filing.AccountID,
		&filing.WorkerRef,
		&filing.NotifyEmail,
		&jurisdiction,
		&mode,
		&motive,
		&filing.DisputeDate,
		&status,
		&filing.ProxyID,
		&filing.OfficialRef,
		&filing.AppointmentDate,
		&filing.ErrorCode,
		&filing.ErrorDetail,
		&filing.CreditDebited,
		&guide,
		&filing.PreviousAttemptID,
		&filing.CreatedAt,
		&filing.UpdatedAt,
		&filing.CompletedAt,
	)
	if err != nil {
		return domain.FilingRequest{}, err
	}
	filing.Mode = domain.FilingMode(mode)
	filing.Motive = domain.Motive(motive)
	filing.Status = domain.FilingStatus(status)

	if err := json.Unmarshal(jurisdiction, &filing.Jurisdiction); err != nil {
		return domain.FilingRequest{}, fmt.Errorf("decode jurisdiction: %w", err)
	}
	if len(guide) > 0 {
		filing.Guide = &domain.ManualGuide{}
		if err := json.Unmarshal(guide, filing.Guide); err != nil {
			return domain.FilingRequest{}, fmt.Errorf("decode manual guide: %w", err)
		}
	}
	return filing, nil
}
