package ports

import (
	"context"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

// AccountStore persists credit accounts. DebitOne must be a single conditional
// update: it fails with ErrInsufficientCredit instead of going negative.
type AccountStore interface {
	GetAccount(ctx context.Context, accountID string) (*domain.CreditAccount, error)
	DebitOne(ctx context.Context, accountID, filingID string, at time.Time) (*domain.LedgerEntry, error)
}

// ProxyStore reads the proxy inventory. AcquireLeastUsed selects and stamps the
// least-used eligible resource atomically; IncrementUsage is an atomic counter bump.
type ProxyStore interface {
	AcquireLeastUsed(ctx context.Context, regionKey string, at time.Time) (*domain.ProxyResource, error)
	IncrementUsage(ctx context.Context, proxyID string, at time.Time) error
	ListByRegion(ctx context.Context, regionKey string) ([]domain.ProxyResource, error)
	SetAvailability(ctx context.Context, proxyID string, available bool) error
}

// FilingRepository persists filing requests. UpdateIfStatus writes the mutable
// fields only when the stored status still equals expected. ListStale returns
// requests in status whose last update is older than updatedBefore.
type FilingRepository interface {
	Create(ctx context.Context, filing *domain.FilingRequest) error
	GetByID(ctx context.Context, id string) (*domain.FilingRequest, error)
	ListByCase(ctx context.Context, caseRef string) ([]domain.FilingRequest, error)
	ListStale(ctx context.Context, status domain.FilingStatus, updatedBefore time.Time) ([]domain.FilingRequest, error)
	UpdateIfStatus(ctx context.Context, filing *domain.FilingRequest, expected domain.FilingStatus) error
}

// ReconciliationStore persists ledger reconciliation exceptions.
type ReconciliationStore interface {
	CreateException(ctx context.Context, exception *domain.ReconciliationException) error
	ListExceptions(ctx context.Context, includeResolved bool) ([]domain.ReconciliationException, error)
	ResolveException(ctx context.Context, id string, at time.Time) error
}

// TxStores are the stores bound to one transaction.
type TxStores struct {
	Filings         FilingRepository
	Accounts        AccountStore
	Proxies         ProxyStore
	Reconciliations ReconciliationStore
}

// UnitOfWork runs fn inside one transaction boundary; fn's error rolls it back.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx TxStores) error) error
}

// FilingAutomation is the browser-automation collaborator.
type FilingAutomation interface {
	Submit(ctx context.Context, req domain.AutomationRequest) (domain.AutomationResult, error)
}

// Notifier informs the filer of the ratification appointment.
type Notifier interface {
	NotifyAppointment(ctx context.Context, filing domain.FilingRequest) error
}

// FilingQueue publishes/consumes automated filing runs.
type FilingQueue interface {
	PublishFilingRequested(ctx context.Context, filingID string) error
	SubscribeFilingRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// FilingObserver receives pipeline outcomes for metrics.
type FilingObserver interface {
	PreflightRejected(reason string)
	ProxyAcquired(regionKey string)
	AutomationFinished(status domain.FilingStatus, errorCode string, duration time.Duration)
	ReconciliationRaised()
}
