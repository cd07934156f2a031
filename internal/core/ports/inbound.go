package ports

import (
	"context"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

// JurisdictionResolver classifies a workplace into competency and venue.
type JurisdictionResolver interface {
	Resolve(ctx context.Context, input domain.JurisdictionInput) (domain.JurisdictionResult, error)
}

// CreditChecker is the read side of the credit ledger.
type CreditChecker interface {
	CheckAvailable(ctx context.Context, accountID string) (domain.CreditBalance, error)
}

// FilingService is the inbound contract of the filing state machine.
type FilingService interface {
	CreateDraft(ctx context.Context, input domain.DraftInput) (*domain.FilingRequest, error)
	RunAutomated(ctx context.Context, filingID string) (*domain.FilingRequest, error)
	DispatchAutomated(ctx context.Context, filingID string) (*domain.FilingRequest, error)
	GenerateManualGuide(ctx context.Context, filingID string) (*domain.FilingRequest, error)
	Cancel(ctx context.Context, filingID string) (*domain.FilingRequest, error)
	Reattempt(ctx context.Context, filingID string) (*domain.FilingRequest, error)
}

// FilingReader is the read model for filings.
type FilingReader interface {
	GetByID(ctx context.Context, filingID string) (*domain.FilingRequest, error)
	ListByCase(ctx context.Context, caseRef string) ([]domain.FilingRequest, error)
}

// FilingRunner drives one automated filing; the worker consumes it.
type FilingRunner interface {
	RunAutomated(ctx context.Context, filingID string) (*domain.FilingRequest, error)
}

// ReconciliationService lets operators follow up on credits that could not be debited.
type ReconciliationService interface {
	ListOpen(ctx context.Context) ([]domain.ReconciliationException, error)
	Resolve(ctx context.Context, exceptionID string) error
}
