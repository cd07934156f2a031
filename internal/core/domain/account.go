package domain

import "time"

type PlanTier string

const (
	PlanFree         PlanTier = "free"
	PlanProfessional PlanTier = "professional"
	PlanFirm         PlanTier = "firm"
)

// CreditAccount is the quota held by a billing subject (a professional or a firm).
type CreditAccount struct {
	OwnerID          string    `json:"owner_id"`
	Plan             PlanTier  `json:"plan"`
	MonthlyAllowance int       `json:"monthly_allowance"`
	ConsumedInCycle  int       `json:"consumed_in_cycle"`
	ExtraBalance     int       `json:"extra_balance"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Available is allowance - consumed + extra, never below zero.
func (a CreditAccount) Available() int {
	n := a.MonthlyAllowance - a.ConsumedInCycle + a.ExtraBalance
	if n < 0 {
		return 0
	}
	return n
}

// CanDebit reports whether one more credit may be consumed.
func (a CreditAccount) CanDebit() bool {
	return a.Available() >= 1
}

// ApplyDebit consumes one credit, drawing on the monthly allowance first and on
// the purchased extra balance once the allowance is exhausted.
func (a CreditAccount) ApplyDebit() (CreditAccount, CreditSource, bool) {
	if !a.CanDebit() {
		return a, "", false
	}
	if a.ConsumedInCycle < a.MonthlyAllowance {
		a.ConsumedInCycle++
		return a, CreditSourceAllowance, true
	}
	a.ExtraBalance--
	return a, CreditSourceExtra, true
}

type CreditBalance struct {
	AccountID string   `json:"account_id"`
	Available int      `json:"available"`
	Plan      PlanTier `json:"plan"`
}

type CreditSource string

const (
	CreditSourceAllowance CreditSource = "allowance"
	CreditSourceExtra     CreditSource = "extra"
)

// LedgerEntry records one consumed credit.
type LedgerEntry struct {
	ID             string       `json:"id"`
	AccountID      string       `json:"account_id"`
	FilingID       string       `json:"filing_id"`
	Amount         int          `json:"amount"`
	Source         CreditSource `json:"source"`
	AvailableAfter int          `json:"available_after"`
	CreatedAt      time.Time    `json:"created_at"`
}

// ReconciliationException flags a completed filing whose credit could not be debited.
type ReconciliationException struct {
	ID         string     `json:"id"`
	FilingID   string     `json:"filing_id"`
	AccountID  string     `json:"account_id"`
	Reason     string     `json:"reason"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
