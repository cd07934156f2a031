package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

type AccountRepository struct {
	db dbtx
}

func NewAccountRepository(db dbtx) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetAccount(ctx context.Context, accountID string) (*domain.CreditAccount, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT owner_id, plan, monthly_allowance, consumed_in_cycle, extra_balance, updated_at
FROM credit_accounts
WHERE owner_id = $1
`, accountID)

	var account domain.CreditAccount
	var plan string
	err := row.Scan(&account.OwnerID, &plan, &account.MonthlyAllowance, &account.ConsumedInCycle, &account.ExtraBalance, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAccountNotFound, "get account", fmt.Errorf("id=%s", accountID))
		}
		return nil, fmt.Errorf("scan credit account: %w", err)
	}
	account.Plan = domain.PlanTier(plan)
	return &account, nil
}

// debitQuery consumes one credit and appends the ledger entry in a single
// statement. The allowance is drawn first; extra balance only once the
// allowance is exhausted. No row comes back when nothing is available.
const debitQuery = `
WITH prev AS (
	SELECT owner_id, consumed_in_cycle < monthly_allowance AS from_allowance
	FROM credit_accounts
	WHERE owner_id = $1
	FOR UPDATE
), debited AS (
	UPDATE credit_accounts AS a
	SET consumed_in_cycle = CASE WHEN prev.from_allowance THEN a.consumed_in_cycle + 1 ELSE a.consumed_in_cycle END,
		extra_balance = CASE WHEN prev.from_allowance THEN a.extra_balance ELSE a.extra_balance - 1 END,
		updated_at = $2
	FROM prev
	WHERE a.owner_id = prev.owner_id
		AND a.monthly_allowance - a.consumed_in_cycle + a.extra_balance >= 1
	RETURNING a.owner_id, prev.from_allowance, a.monthly_allowance - a.consumed_in_cycle + a.extra_balance AS available_after
), entry AS (
	INSERT INTO credit_ledger_entries (id, account_id, filing_id, amount, source, available_after, created_at)
	SELECT $3, d.owner_id, $4, -1, CASE WHEN d.from_allowance THEN 'allowance' ELSE 'extra' END, d.available_after, $2
	FROM debited d
	RETURNING source, available_after
)
SELECT source, available_after FROM entry
`

func (r *AccountRepository) DebitOne(ctx context.Context, accountID, filingID string, at time.Time) (*domain.LedgerEntry, error) {
	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		FilingID:  filingID,
		Amount:    -1,
		CreatedAt: at,
	}

	var source string
	err := r.db.QueryRowContext(ctx, debitQuery, accountID, at, entry.ID, filingID).Scan(&source, &entry.AvailableAfter)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyMissedDebit(ctx, accountID)
		}
		return nil, fmt.Errorf("debit credit account: %w", err)
	}
	entry.Source = domain.CreditSource(source)
	return &entry, nil
}

func (r *AccountRepository) classifyMissedDebit(ctx context.Context, accountID string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM credit_accounts WHERE owner_id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check credit account: %w", err)
	}
	if !exists {
		return domain.WrapError(domain.ErrAccountNotFound, "debit account", fmt.Errorf("id=%s", accountID))
	}
	return domain.WrapError(domain.ErrInsufficientCredit, "debit account", fmt.Errorf("id=%s", accountID))
}
