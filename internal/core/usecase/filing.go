package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
)

const (
	defaultAutomationTimeout = 4 * time.Minute
	defaultCommitTimeout     = 15 * time.Second
	defaultCommitAttempts    = 4
	defaultCommitBackoff     = 500 * time.Millisecond
	defaultNotifyTimeout     = 30 * time.Second
)

// FilingUseCase is the filing state machine:
//
//	draft -> generating -> completed | error   (automated)
//	draft -> completed                         (manual guide)
//	draft -> cancelled
//
// Terminal requests are never reopened; a re-attempt is a new request.
type FilingUseCase struct {
	repo       ports.FilingRepository
	uow        ports.UnitOfWork
	resolver   ports.JurisdictionResolver
	ledger     *CreditLedger
	allocator  *ProxyAllocator
	automation ports.FilingAutomation
	calendar   *domain.BusinessCalendar

	queue    ports.FilingQueue
	notifier ports.Notifier
	observer ports.FilingObserver
	logger   *slog.Logger
	now      func() time.Time

	automationTimeout time.Duration
	commitTimeout     time.Duration
	commitAttempts    int
	commitBackoff     time.Duration
	notifyTimeout     time.Duration

	notifications sync.WaitGroup
}

type FilingOption func(*FilingUseCase)

func WithFilingQueue(queue ports.FilingQueue) FilingOption {
	return func(uc *FilingUseCase) { uc.queue = queue }
}

func WithNotifier(notifier ports.Notifier) FilingOption {
	return func(uc *FilingUseCase) { uc.notifier = notifier }
}

func WithObserver(observer ports.FilingObserver) FilingOption {
	return func(uc *FilingUseCase) { uc.observer = observer }
}

func WithLogger(logger *slog.Logger) FilingOption {
	return func(uc *FilingUseCase) { uc.logger = logger }
}

func WithClock(now func() time.Time) FilingOption {
	return func(uc *FilingUseCase) { uc.now = now }
}

func WithAutomationTimeout(timeout time.Duration) FilingOption {
	return func(uc *FilingUseCase) {
		if timeout > 0 {
			uc.automationTimeout = timeout
		}
	}
}

// WithCommitRetry sets how many times a terminal commit is tried and the
// initial backoff between tries.
func WithCommitRetry(attempts int, backoff time.Duration) FilingOption {
	return func(uc *FilingUseCase) {
		if attempts > 0 {
			uc.commitAttempts = attempts
		}
		if backoff >= 0 {
			uc.commitBackoff = backoff
		}
	}
}

func NewFilingUseCase(
	repo ports.FilingRepository,
	uow ports.UnitOfWork,
	resolver ports.JurisdictionResolver,
	accounts ports.AccountStore,
	proxies ports.ProxyStore,
	automation ports.FilingAutomation,
	calendar *domain.BusinessCalendar,
	opts ...FilingOption,
) *FilingUseCase {
	uc := &FilingUseCase{
		repo:              repo,
		uow:               uow,
		resolver:          resolver,
		ledger:            NewCreditLedger(accounts),
		allocator:         NewProxyAllocator(proxies),
		automation:        automation,
		calendar:          calendar,
		observer:          noopObserver{},
		logger:            slog.Default(),
		now:               func() time.Time { return time.Now().UTC() },
		automationTimeout: defaultAutomationTimeout,
		commitTimeout:     defaultCommitTimeout,
		commitAttempts:    defaultCommitAttempts,
		commitBackoff:     defaultCommitBackoff,
		notifyTimeout:     defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.ledger.now = uc.now
	uc.allocator.now = uc.now
	return uc
}

func (uc *FilingUseCase) CreateDraft(ctx context.Context, input domain.DraftInput) (*domain.FilingRequest, error) {
	if err := input.Validate(); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create draft", err)
	}

	jurisdiction, err := uc.resolver.Resolve(ctx, input.Workplace)
	if err != nil {
		return nil, err
	}

	if input.Mode == domain.FilingAutomated {
		if _, err := uc.ledger.CheckAvailable(ctx, input.AccountID); err != nil {
			return nil, err
		}
	}

	return uc.createDraft(ctx, input, jurisdiction)
}

func (uc *FilingUseCase) createDraft(ctx context.Context, input domain.DraftInput, jurisdiction domain.JurisdictionResult) (*domain.FilingRequest, error) {
	now := uc.now()
	filing := &domain.FilingRequest{
		ID:                uuid.NewString(),
		CaseRef:           strings.TrimSpace(input.CaseRef),
		AccountID:         strings.TrimSpace(input.AccountID),
		WorkerRef:         strings.TrimSpace(input.WorkerRef),
		NotifyEmail:       strings.TrimSpace(input.NotifyEmail),
		Jurisdiction:      jurisdiction,
		Mode:              input.Mode,
		Motive:            input.Motive,
		DisputeDate:       input.DisputeDate,
		Status:            domain.FilingDraft,
		PreviousAttemptID: input.PreviousAttemptID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.Create(ctx, filing); err != nil {
		return nil, fmt.Errorf("create filing: %w", err)
	}

	uc.logger.Info("filing_draft_created",
		"filing_id", filing.ID,
		"case_ref", filing.CaseRef,
		"mode", filing.Mode,
		"competency", filing.Jurisdiction.Competency,
		"region", filing.Jurisdiction.RegionKey,
	)
	return filing, nil
}

func (uc *FilingUseCase) GetByID(ctx context.Context, filingID string) (*domain.FilingRequest, error) {
	filing, err := uc.repo.GetByID(ctx, filingID)
	if err != nil {
		return nil, fmt.Errorf("fetch filing by id: %w", err)
	}
	return filing, nil
}

func (uc *FilingUseCase) ListByCase(ctx context.Context, caseRef string) ([]domain.FilingRequest, error) {
	if strings.TrimSpace(caseRef) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list filings", errors.New("case reference is required"))
	}
	filings, err := uc.repo.ListByCase(ctx, caseRef)
	if err != nil {
		return nil, fmt.Errorf("list filings by case: %w", err)
	}
	return filings, nil
}

// GenerateManualGuide completes a draft without credit, proxy or automation.
// An automated draft may switch to manual here, e.g. after InsufficientCredit.
func (uc *FilingUseCase) GenerateManualGuide(ctx context.Context, filingID string) (*domain.FilingRequest, error) {
	filing, err := uc.loadDraft(ctx, filingID, "generate manual guide")
	if err != nil {
		return nil, err
	}

	now := uc.now()
	guide := buildManualGuide(filing.Jurisdiction, filing.Motive)
	filing.Mode = domain.FilingManual
	filing.Status = domain.FilingCompleted
	filing.Guide = &guide
	filing.OfficialRef = ""
	filing.ProxyID = ""
	filing.CreditDebited = false
	filing.UpdatedAt = now
	filing.CompletedAt = &now

	if err := uc.repo.UpdateIfStatus(ctx, filing, domain.FilingDraft); err != nil {
		return nil, fmt.Errorf("complete manual filing: %w", err)
	}

	uc.logger.Info("filing_manual_guide_generated", "filing_id", filing.ID, "venue", filing.Jurisdiction.Venue.ID)
	return filing, nil
}

// Cancel is only allowed from draft: an in-flight portal interaction cannot be
// aborted safely.
func (uc *FilingUseCase) Cancel(ctx context.Context, filingID string) (*domain.FilingRequest, error) {
	filing, err := uc.loadDraft(ctx, filingID, "cancel filing")
	if err != nil {
		return nil, err
	}

	filing.Status = domain.FilingCancelled
	filing.UpdatedAt = uc.now()
	if err := uc.repo.UpdateIfStatus(ctx, filing, domain.FilingDraft); err != nil {
		return nil, fmt.Errorf("cancel filing: %w", err)
	}
	uc.logger.Info("filing_cancelled", "filing_id", filing.ID)
	return filing, nil
}

// Reattempt creates a new draft carrying the facts of a failed or cancelled
// request. The original request is left untouched.
func (uc *FilingUseCase) Reattempt(ctx context.Context, filingID string) (*domain.FilingRequest, error) {
	previous, err := uc.repo.GetByID(ctx, filingID)
	if err != nil {
		return nil, fmt.Errorf("fetch filing by id: %w", err)
	}
	if previous.Status != domain.FilingError && previous.Status != domain.FilingCancelled {
		return nil, domain.WrapError(
			domain.ErrInvalidTransition,
			"reattempt filing",
			fmt.Errorf("filing %s is %s; only error or cancelled requests can be re-attempted", previous.ID, previous.Status),
		)
	}

	input := domain.DraftInput{
		CaseRef:           previous.CaseRef,
		AccountID:         previous.AccountID,
		WorkerRef:         previous.WorkerRef,
		NotifyEmail:       previous.NotifyEmail,
		Mode:              previous.Mode,
		Motive:            previous.Motive,
		DisputeDate:       previous.DisputeDate,
		PreviousAttemptID: previous.ID,
	}
	return uc.createDraft(ctx, input, previous.Jurisdiction)
}

func (uc *FilingUseCase) loadDraft(ctx context.Context, filingID, operation string) (*domain.FilingRequest, error) {
	filing, err := uc.repo.GetByID(ctx, filingID)
	if err != nil {
		return nil, fmt.Errorf("fetch filing by id: %w", err)
	}
	if filing.Status != domain.FilingDraft {
		return nil, domain.WrapError(
			domain.ErrInvalidTransition,
			operation,
			fmt.Errorf("filing %s is %s, expected draft", filing.ID, filing.Status),
		)
	}
	return filing, nil
}

type noopObserver struct{}

func (noopObserver) PreflightRejected(string) {}
func (noopObserver) ProxyAcquired(string) {}
func (noopObserver) AutomationFinished(domain.FilingStatus, string, time.Duration) {}
func (noopObserver) ReconciliationRaised() {}
