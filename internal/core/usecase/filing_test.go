package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/infrastructure/repository/memory"
)

var fixedNow = time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC) // Thursday

type automationFake struct {
	mu       sync.Mutex
	result   domain.AutomationResult
	err      error
	block    chan struct{}
	delay    time.Duration
	onSubmit func()
	calls    int
	lastReq  domain.AutomationRequest
}

func (f *automationFake) Submit(ctx context.Context, req domain.AutomationRequest) (domain.AutomationResult, error) {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	onSubmit := f.onSubmit
	f.mu.Unlock()
	if onSubmit != nil {
		onSubmit()
	}
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.AutomationResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *automationFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type notifierFake struct {
	mu      sync.Mutex
	filings []domain.FilingRequest
}

func (f *notifierFake) NotifyAppointment(_ context.Context, filing domain.FilingRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filings = append(f.filings, filing)
	return nil
}

type observerFake struct {
	mu              sync.Mutex
	rejected        []string
	finished        []domain.FilingStatus
	reconciliations int
}

func (f *observerFake) PreflightRejected(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, reason)
}

func (f *observerFake) ProxyAcquired(string) {}

func (f *observerFake) AutomationFinished(status domain.FilingStatus, _ string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, status)
}

func (f *observerFake) ReconciliationRaised() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciliations++
}

type queueFake struct {
	published []string
}

func (f *queueFake) PublishFilingRequested(_ context.Context, filingID string) error {
	f.published = append(f.published, filingID)
	return nil
}

func (f *queueFake) SubscribeFilingRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

// debitFailingUoW runs the real transaction but makes every debit fail with err.
type debitFailingUoW struct {
	inner *memory.Store
	err   error
}

func (u debitFailingUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.TxStores) error) error {
	return u.inner.WithinTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
		tx.Accounts = failingAccounts{AccountStore: tx.Accounts, err: u.err}
		return fn(ctx, tx)
	})
}

type failingAccounts struct {
	ports.AccountStore
	err error
}

func (f failingAccounts) DebitOne(context.Context, string, string, time.Time) (*domain.LedgerEntry, error) {
	return nil, f.err
}

// outageUoW fails the next failures transactions (all of them when negative)
// before delegating to the memory store.
type outageUoW struct {
	inner    *memory.Store
	mu       sync.Mutex
	failures int
	calls    int
}

func (u *outageUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.TxStores) error) error {
	u.mu.Lock()
	u.calls++
	failing := u.failures != 0
	if u.failures > 0 {
		u.failures--
	}
	u.mu.Unlock()
	if failing {
		return errors.New("dial tcp 10.0.0.5:5432: connection refused")
	}
	return u.inner.WithinTx(ctx, fn)
}

type filingHarness struct {
	store      *memory.Store
	automation *automationFake
	notifier   *notifierFake
	observer   *observerFake
	uc         *FilingUseCase
}

func newFilingHarness(t *testing.T, credits int, opts ...FilingOption) *filingHarness {
	t.Helper()
	store := memory.New()
	store.PutAccount(domain.CreditAccount{OwnerID: "acct-1", Plan: domain.PlanProfessional, MonthlyAllowance: credits})
	store.PutProxy(domain.ProxyResource{ID: "px-jal-1", RegionKey: "JAL", Endpoint: "socks5://10.0.0.1:1080", Available: true})
	store.PutProxy(domain.ProxyResource{ID: "px-nle-1", RegionKey: "NLE", Endpoint: "socks5://10.0.1.1:1080", Available: true})

	h := &filingHarness{
		store:      store,
		automation: &automationFake{result: domain.AutomationResult{Success: true, OfficialRef: "JAL-2026-000123"}},
		notifier:   &notifierFake{},
		observer:   &observerFake{},
	}
	base := []FilingOption{
		WithClock(func() time.Time { return fixedNow }),
		WithNotifier(h.notifier),
		WithObserver(h.observer),
	}
	h.uc = NewFilingUseCase(
		store,
		store,
		NewJurisdictionResolver(testCatalog()),
		store,
		store,
		h.automation,
		domain.NewBusinessCalendar(time.UTC, nil),
		append(base, opts...)...,
	)
	return h
}

func jaliscoDraft(mode domain.FilingMode) domain.DraftInput {
	return domain.DraftInput{
		CaseRef:   "case-77",
		AccountID: "acct-1",
		WorkerRef: "worker-9",
		Workplace: domain.JurisdictionInput{
			WorkplaceState:   "Jalisco",
			WorkplaceAddress: "Av. Vallarta 1000, Guadalajara",
		},
		Mode:        mode,
		Motive:      domain.MotiveDismissal,
		DisputeDate: fixedNow.AddDate(0, 0, -7),
	}
}

func (h *filingHarness) available(t *testing.T) int {
	t.Helper()
	account, err := h.store.GetAccount(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	return account.Available()
}

func (h *filingHarness) proxy(t *testing.T, id string) domain.ProxyResource {
	t.Helper()
	proxies, err := h.store.ListByRegion(context.Background(), "JAL")
	if err != nil {
		t.Fatalf("ListByRegion() error = %v", err)
	}
	for _, p := range proxies {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("proxy %s not found", id)
	return domain.ProxyResource{}
}

func TestRunAutomatedJaliscoSuccess(t *testing.T) {
	h := newFilingHarness(t, 3)
	ctx := context.Background()

	draft, err := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	if err != nil {
		t.Fatalf("CreateDraft() error = %v", err)
	}
	if draft.Status != domain.FilingDraft || draft.Jurisdiction.Competency != domain.CompetencyLocal {
		t.Fatalf("unexpected draft: %+v", draft)
	}

	filing, err := h.uc.RunAutomated(ctx, draft.ID)
	if err != nil {
		t.Fatalf("RunAutomated() error = %v", err)
	}
	h.uc.WaitNotifications()

	if filing.Status != domain.FilingCompleted || filing.OfficialRef != "JAL-2026-000123" {
		t.Fatalf("unexpected filing: %+v", filing)
	}
	wantAppointment := time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC)
	if filing.AppointmentDate == nil || !filing.AppointmentDate.Equal(wantAppointment) {
		t.Fatalf("expected appointment %s, got %v", wantAppointment, filing.AppointmentDate)
	}
	if !filing.CreditDebited || filing.ProxyID != "px-jal-1" {
		t.Fatalf("expected debit and jalisco proxy, got %+v", filing)
	}
	if got := h.available(t); got != 2 {
		t.Fatalf("expected 2 credits left, got %d", got)
	}
	if got := h.proxy(t, "px-jal-1").UsageCount; got != 1 {
		t.Fatalf("expected proxy usage 1, got %d", got)
	}
	if h.automation.lastReq.ProxyEndpoint != "socks5://10.0.0.1:1080" {
		t.Fatalf("automation did not receive the proxy endpoint: %+v", h.automation.lastReq)
	}
	if entries := h.store.LedgerEntries("acct-1"); len(entries) != 1 || entries[0].FilingID != filing.ID {
		t.Fatalf("expected one ledger entry for filing, got %+v", entries)
	}
	if len(h.notifier.filings) != 1 || h.notifier.filings[0].ID != filing.ID {
		t.Fatalf("expected one appointment notification, got %d", len(h.notifier.filings))
	}

	stored, err := h.uc.GetByID(ctx, filing.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Status != domain.FilingCompleted || stored.CompletedAt == nil {
		t.Fatalf("stored filing not completed: %+v", stored)
	}
}

func TestRunAutomatedWithoutCreditsStaysDraft(t *testing.T) {
	h := newFilingHarness(t, 0)
	ctx := context.Background()

	draft, err := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	if err != nil {
		t.Fatalf("CreateDraft() error = %v", err)
	}

	_, err = h.uc.RunAutomated(ctx, draft.ID)
	if !domain.IsKind(err, domain.ErrInsufficientCredit) {
		t.Fatalf("expected ErrInsufficientCredit, got %v", err)
	}

	stored, _ := h.uc.GetByID(ctx, draft.ID)
	if stored.Status != domain.FilingDraft || stored.ProxyID != "" {
		t.Fatalf("expected untouched draft, got %+v", stored)
	}
	if p := h.proxy(t, "px-jal-1"); p.LastAcquiredAt != nil || p.UsageCount != 0 {
		t.Fatalf("proxy must not be acquired: %+v", p)
	}
	if h.automation.callCount() != 0 {
		t.Fatalf("automation must not run")
	}
	if len(h.observer.rejected) != 1 || h.observer.rejected[0] != "insufficient_credit" {
		t.Fatalf("expected one insufficient_credit rejection, got %v", h.observer.rejected)
	}
}

func TestRunAutomatedWithoutProxyStaysDraft(t *testing.T) {
	h := newFilingHarness(t, 3)
	ctx := context.Background()
	if err := h.store.SetAvailability(ctx, "px-jal-1", false); err != nil {
		t.Fatalf("SetAvailability() error = %v", err)
	}

	draft, err := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	if err != nil {
		t.Fatalf("CreateDraft() error = %v", err)
	}

	_, err = h.uc.RunAutomated(ctx, draft.ID)
	if !domain.IsKind(err, domain.ErrNoProxyAvailable) {
		t.Fatalf("expected ErrNoProxyAvailable, got %v", err)
	}
	stored, _ := h.uc.GetByID(ctx, draft.ID)
	if stored.Status != domain.FilingDraft {
		t.Fatalf("expected draft, got %s", stored.Status)
	}
	if got := h.available(t); got != 3 {
		t.Fatalf("credits changed: %d", got)
	}
}

func TestGenerateManualGuideIgnoresCredits(t *testing.T) {
	h := newFilingHarness(t, 0)
	ctx := context.Background()

	input := jaliscoDraft(domain.FilingManual)
	input.AccountID = ""
	draft, err := h.uc.CreateDraft(ctx, input)
	if err != nil {
		t.Fatalf("CreateDraft() error = %v", err)
	}

	filing, err := h.uc.GenerateManualGuide(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GenerateManualGuide() error = %v", err)
	}
	if filing.Status != domain.FilingCompleted || filing.OfficialRef != "" || filing.ProxyID != "" || filing.CreditDebited {
		t.Fatalf("unexpected manual filing: %+v", filing)
	}
	if filing.Guide == nil || filing.Guide.VenueName == "" || len(filing.Guide.Steps) == 0 {
		t.Fatalf("expected manual guide, got %+v", filing.Guide)
	}
	if h.automation.callCount() != 0 {
		t.Fatalf("automation must not run in manual mode")
	}
	if p := h.proxy(t, "px-jal-1"); p.LastAcquiredAt != nil {
		t.Fatalf("manual mode must not touch proxies")
	}
}

func TestRunAutomatedFailureKeepsCreditsAndRecordsUsage(t *testing.T) {
	h := newFilingHarness(t, 3)
	h.automation.result = domain.AutomationResult{Success: false, Reason: "portal rejected the captcha"}
	ctx := context.Background()

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	filing, err := h.uc.RunAutomated(ctx, draft.ID)
	if !domain.IsKind(err, domain.ErrAutomationFailure) {
		t.Fatalf("expected ErrAutomationFailure, got %v", err)
	}
	if filing == nil || filing.Status != domain.FilingError || filing.ErrorCode != "automation_failure" {
		t.Fatalf("expected error filing, got %+v", filing)
	}
	if got := h.available(t); got != 3 {
		t.Fatalf("failed attempt must not burn credit: available=%d", got)
	}
	if got := h.proxy(t, "px-jal-1").UsageCount; got != 1 {
		t.Fatalf("expected used-but-unconsumed proxy usage 1, got %d", got)
	}
	if len(h.notifier.filings) != 0 {
		t.Fatalf("failed filings must not notify")
	}
}

func TestRunAutomatedTimeoutMovesToError(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := newFilingHarness(t, 3, WithAutomationTimeout(20*time.Millisecond))
	h.automation.block = release
	ctx := context.Background()

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	filing, err := h.uc.RunAutomated(ctx, draft.ID)
	if !domain.IsKind(err, domain.ErrAutomationTimeout) {
		t.Fatalf("expected ErrAutomationTimeout, got %v", err)
	}
	if filing.Status != domain.FilingError || filing.ErrorCode != "automation_timeout" {
		t.Fatalf("unexpected filing: %+v", filing)
	}
	if got := h.available(t); got != 3 {
		t.Fatalf("credits changed after timeout: %d", got)
	}
}

func TestRunAutomatedDebitRejectionRaisesReconciliation(t *testing.T) {
	h := newFilingHarness(t, 3)
	ctx := context.Background()
	h.uc.uow = debitFailingUoW{inner: h.store, err: domain.WrapError(domain.ErrInsufficientCredit, "debit account", errors.New("drained"))}

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	filing, err := h.uc.RunAutomated(ctx, draft.ID)
	if err != nil {
		t.Fatalf("RunAutomated() error = %v", err)
	}
	if filing.Status != domain.FilingCompleted || filing.CreditDebited {
		t.Fatalf("expected completed filing without debit, got %+v", filing)
	}
	exceptions, _ := h.store.ListExceptions(ctx, false)
	if len(exceptions) != 1 || exceptions[0].FilingID != filing.ID {
		t.Fatalf("expected one reconciliation exception, got %+v", exceptions)
	}
	if got := h.proxy(t, "px-jal-1").UsageCount; got != 1 {
		t.Fatalf("expected proxy usage 1, got %d", got)
	}
	if h.observer.reconciliations != 1 {
		t.Fatalf("expected one reconciliation metric, got %d", h.observer.reconciliations)
	}
}

func TestRunAutomatedLedgerOutageStillCompletes(t *testing.T) {
	h := newFilingHarness(t, 3)
	ctx := context.Background()
	h.uc.uow = debitFailingUoW{inner: h.store, err: errors.New("connection reset by peer")}

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	filing, err := h.uc.RunAutomated(ctx, draft.ID)
	if err != nil {
		t.Fatalf("RunAutomated() error = %v", err)
	}

	stored, _ := h.uc.GetByID(ctx, draft.ID)
	if stored.Status != domain.FilingCompleted || stored.OfficialRef != "JAL-2026-000123" || stored.CreditDebited {
		t.Fatalf("expected completed filing without debit, got %+v", stored)
	}
	exceptions, _ := h.store.ListExceptions(ctx, false)
	if len(exceptions) != 1 || exceptions[0].FilingID != filing.ID {
		t.Fatalf("expected one reconciliation exception, got %+v", exceptions)
	}
	if got := h.proxy(t, "px-jal-1").UsageCount; got != 1 {
		t.Fatalf("expected proxy usage recorded outside the failed tx, got %d", got)
	}
	if got := h.available(t); got != 3 {
		t.Fatalf("credits changed: %d", got)
	}
}

func TestConcurrentRunsNeverOverspendLastCredit(t *testing.T) {
	h := newFilingHarness(t, 1)
	ctx := context.Background()

	const runs = 6
	ids := make([]string, 0, runs)
	for i := 0; i < runs; i++ {
		draft, err := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
		if err != nil {
			t.Fatalf("CreateDraft() error = %v", err)
		}
		ids = append(ids, draft.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, _ = h.uc.RunAutomated(ctx, id)
		}(id)
	}
	wg.Wait()

	account, _ := h.store.GetAccount(ctx, "acct-1")
	if account.ConsumedInCycle > account.MonthlyAllowance || account.ExtraBalance < 0 {
		t.Fatalf("account overspent: %+v", account)
	}
	if entries := h.store.LedgerEntries("acct-1"); len(entries) > 1 {
		t.Fatalf("expected at most one debit, got %d", len(entries))
	}
}

func TestCancelOnlyFromDraft(t *testing.T) {
	h := newFilingHarness(t, 3)
	ctx := context.Background()

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	cancelled, err := h.uc.Cancel(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != domain.FilingCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := h.uc.Cancel(ctx, draft.ID); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second cancel, got %v", err)
	}
	if _, err := h.uc.RunAutomated(ctx, draft.ID); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("cancelled filing must not run, got %v", err)
	}
}

func TestReattemptCreatesLinkedDraft(t *testing.T) {
	h := newFilingHarness(t, 3)
	h.automation.result = domain.AutomationResult{Success: false, Reason: "session expired"}
	ctx := context.Background()

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	failed, _ := h.uc.RunAutomated(ctx, draft.ID)
	if failed.Status != domain.FilingError {
		t.Fatalf("expected error status, got %s", failed.Status)
	}

	retry, err := h.uc.Reattempt(ctx, draft.ID)
	if err != nil {
		t.Fatalf("Reattempt() error = %v", err)
	}
	if retry.ID == draft.ID || retry.PreviousAttemptID != draft.ID || retry.Status != domain.FilingDraft {
		t.Fatalf("unexpected re-attempt: %+v", retry)
	}
	if retry.Jurisdiction.Venue.ID != failed.Jurisdiction.Venue.ID {
		t.Fatalf("re-attempt must keep the embedded jurisdiction")
	}

	original, _ := h.uc.GetByID(ctx, draft.ID)
	if original.Status != domain.FilingError {
		t.Fatalf("original must stay in error, got %s", original.Status)
	}

	attempts, err := h.uc.ListByCase(ctx, "case-77")
	if err != nil {
		t.Fatalf("ListByCase() error = %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected two attempts for the case, got %d", len(attempts))
	}

	if _, err := h.uc.Reattempt(ctx, retry.ID); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("draft must not be re-attempted, got %v", err)
	}
}

func TestDispatchAutomatedPublishesAfterCreditCheck(t *testing.T) {
	queue := &queueFake{}
	h := newFilingHarness(t, 1, WithFilingQueue(queue))
	ctx := context.Background()

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	if _, err := h.uc.DispatchAutomated(ctx, draft.ID); err != nil {
		t.Fatalf("DispatchAutomated() error = %v", err)
	}
	if len(queue.published) != 1 || queue.published[0] != draft.ID {
		t.Fatalf("expected filing id published, got %v", queue.published)
	}

	empty := newFilingHarness(t, 0, WithFilingQueue(queue))
	draft, _ = empty.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	if _, err := empty.uc.DispatchAutomated(ctx, draft.ID); !domain.IsKind(err, domain.ErrInsufficientCredit) {
		t.Fatalf("expected ErrInsufficientCredit, got %v", err)
	}
	if len(queue.published) != 1 {
		t.Fatalf("rejected dispatch must not publish")
	}
}

func TestCreateDraftRejectsUnknownAccountForAutomatedMode(t *testing.T) {
	h := newFilingHarness(t, 3)
	input := jaliscoDraft(domain.FilingAutomated)
	input.AccountID = "ghost"

	if _, err := h.uc.CreateDraft(context.Background(), input); !domain.IsKind(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestRunAutomatedIgnoresCallerCancellationOnceGenerating(t *testing.T) {
	h := newFilingHarness(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.automation.delay = 50 * time.Millisecond
	h.automation.onSubmit = cancel

	draft, err := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	if err != nil {
		t.Fatalf("CreateDraft() error = %v", err)
	}
	filing, err := h.uc.RunAutomated(ctx, draft.ID)
	if err != nil {
		t.Fatalf("RunAutomated() error = %v", err)
	}
	h.uc.WaitNotifications()

	if filing.Status != domain.FilingCompleted || filing.OfficialRef != "JAL-2026-000123" {
		t.Fatalf("expected completed filing after caller went away, got %+v", filing)
	}
	if got := h.available(t); got != 2 {
		t.Fatalf("expected one credit debited, got available=%d", got)
	}
	stored, _ := h.uc.GetByID(context.Background(), draft.ID)
	if stored.Status != domain.FilingCompleted {
		t.Fatalf("stored filing not completed: %+v", stored)
	}
}

func TestRunAutomatedRetriesTerminalCommit(t *testing.T) {
	h := newFilingHarness(t, 3, WithCommitRetry(4, 0))
	uow := &outageUoW{inner: h.store, failures: 2}
	h.uc.uow = uow
	ctx := context.Background()

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	filing, err := h.uc.RunAutomated(ctx, draft.ID)
	if err != nil {
		t.Fatalf("RunAutomated() error = %v", err)
	}
	if filing.Status != domain.FilingCompleted || !filing.CreditDebited {
		t.Fatalf("expected debited completion after retry, got %+v", filing)
	}
	if uow.calls != 3 {
		t.Fatalf("expected two failed transactions and one commit, got %d calls", uow.calls)
	}
	if exceptions, _ := h.store.ListExceptions(ctx, false); len(exceptions) != 0 {
		t.Fatalf("a retried commit must not raise reconciliation, got %+v", exceptions)
	}
	if got := h.available(t); got != 2 {
		t.Fatalf("expected 2 credits left, got %d", got)
	}
}

func TestRecoverStaleFinishesStrandedRun(t *testing.T) {
	h := newFilingHarness(t, 3, WithCommitRetry(2, 0))
	h.uc.uow = &outageUoW{inner: h.store, failures: -1}
	ctx := context.Background()

	draft, _ := h.uc.CreateDraft(ctx, jaliscoDraft(domain.FilingAutomated))
	filing, err := h.uc.RunAutomated(ctx, draft.ID)
	if err == nil || filing != nil {
		t.Fatalf("expected commit failure, got filing=%+v err=%v", filing, err)
	}
	stored, _ := h.uc.GetByID(ctx, draft.ID)
	if stored.Status != domain.FilingGenerating {
		t.Fatalf("expected stranded generating request, got %s", stored.Status)
	}

	h.uc.uow = h.store

	h.uc.now = func() time.Time { return fixedNow.Add(time.Minute) }
	recovered, err := h.uc.RecoverStale(ctx, 0)
	if err != nil {
		t.Fatalf("RecoverStale() error = %v", err)
	}
	if recovered != 0 {
		t.Fatalf("a request younger than the automation bound must be left alone, recovered %d", recovered)
	}

	h.uc.now = func() time.Time { return fixedNow.Add(time.Hour) }
	recovered, err = h.uc.RecoverStale(ctx, 10*time.Minute)
	if err != nil {
		t.Fatalf("RecoverStale() error = %v", err)
	}
	if recovered != 1 {
		t.Fatalf("expected one recovered filing, got %d", recovered)
	}

	stored, _ = h.uc.GetByID(ctx, draft.ID)
	if stored.Status != domain.FilingError || stored.ErrorCode != "run_interrupted" || stored.CreditDebited {
		t.Fatalf("unexpected recovered filing: %+v", stored)
	}
	exceptions, _ := h.store.ListExceptions(ctx, false)
	if len(exceptions) != 1 || exceptions[0].FilingID != draft.ID {
		t.Fatalf("expected one reconciliation exception, got %+v", exceptions)
	}
	if got := h.proxy(t, "px-jal-1").UsageCount; got != 1 {
		t.Fatalf("expected proxy usage recorded on recovery, got %d", got)
	}
	if got := h.available(t); got != 3 {
		t.Fatalf("recovery must not debit, available=%d", got)
	}

	if again, _ := h.uc.RecoverStale(ctx, 10*time.Minute); again != 0 {
		t.Fatalf("recovery must be idempotent, recovered %d", again)
	}
	if _, err := h.uc.Reattempt(ctx, draft.ID); err != nil {
		t.Fatalf("recovered request should be re-attemptable, got %v", err)
	}
}
