package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
)

// CreditLedger gates automated filings. Consumption is linearizable per account
// because the store applies each debit as one conditional update.
type CreditLedger struct {
	accounts ports.AccountStore
	now      func() time.Time
}

func NewCreditLedger(accounts ports.AccountStore) *CreditLedger {
	return &CreditLedger{
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *CreditLedger) CheckAvailable(ctx context.Context, accountID string) (domain.CreditBalance, error) {
	if strings.TrimSpace(accountID) == "" {
		return domain.CreditBalance{}, domain.WrapError(domain.ErrInvalidInput, "check credits", errors.New("account id is required"))
	}
	account, err := l.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return domain.CreditBalance{}, fmt.Errorf("load credit account: %w", err)
	}
	return domain.CreditBalance{
		AccountID: account.OwnerID,
		Available: account.Available(),
		Plan:      account.Plan,
	}, nil
}

// Debit consumes one credit for filingID. It is only called once a filing has
// succeeded.
func (l *CreditLedger) Debit(ctx context.Context, accountID, filingID string) (*domain.LedgerEntry, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "debit credit", errors.New("account id is required"))
	}
	entry, err := l.accounts.DebitOne(ctx, accountID, filingID, l.now())
	if err != nil {
		return nil, fmt.Errorf("debit credit: %w", err)
	}
	return entry, nil
}
