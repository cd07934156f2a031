package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
)

// RunAutomated drives draft -> generating -> completed|error.
//
// Pre-flight failures (InsufficientCredit, NoProxyAvailable) leave the request
// in draft and are returned as errors. Post-flight failures (AutomationFailure,
// AutomationTimeout) move it to error; the updated request is returned along
// with the error.
//
// Once the request is generating the caller can no longer cancel it: the portal
// submission and the terminal commit run detached from ctx, bounded only by the
// automation timeout and the commit retry budget.
func (uc *FilingUseCase) RunAutomated(ctx context.Context, filingID string) (*domain.FilingRequest, error) {
	filing, proxy, err := uc.preflight(ctx, filingID)
	if err != nil {
		return nil, err
	}

	runCtx := context.WithoutCancel(ctx)
	started := uc.now()
	result, runErr := uc.runAutomation(runCtx, filing, proxy)

	if runErr != nil {
		if err := uc.commitTerminal(runCtx, filing.ID, func(ctx context.Context) error {
			return uc.commitFailure(ctx, filing, runErr)
		}); err != nil {
			return nil, errors.Join(runErr, err)
		}
		uc.observer.AutomationFinished(domain.FilingError, filing.ErrorCode, uc.now().Sub(started))
		return filing, runErr
	}

	if err := uc.commitTerminal(runCtx, filing.ID, func(ctx context.Context) error {
		return uc.commitSuccess(ctx, filing, result)
	}); err != nil {
		return nil, err
	}
	uc.observer.AutomationFinished(domain.FilingCompleted, "", uc.now().Sub(started))
	uc.notifyAsync(runCtx, *filing)
	return filing, nil
}

// commitTerminal retries a terminal commit with exponential backoff so that a
// short store outage does not strand the request in generating. The external
// outcome is already fixed, so every attempt writes the same state. Requests
// that still cannot be committed are picked up by RecoverStale.
func (uc *FilingUseCase) commitTerminal(ctx context.Context, filingID string, commit func(context.Context) error) error {
	backoff := uc.commitBackoff
	var err error
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, uc.commitTimeout)
		err = commit(attemptCtx)
		cancel()
		if err == nil || domain.IsKind(err, domain.ErrInvalidTransition) || attempt >= uc.commitAttempts {
			return err
		}
		uc.logger.Warn("filing_commit_retry",
			"filing_id", filingID,
			"attempt", attempt,
			"backoff_ms", backoff.Milliseconds(),
			"error", err,
		)
		time.Sleep(backoff)
		backoff *= 2
	}
}

// staleAfterFloor is the longest a live run can legitimately stay generating:
// the automation bound plus every commit attempt and its backoff.
func (uc *FilingUseCase) staleAfterFloor() time.Duration {
	floor := uc.automationTimeout
	backoff := uc.commitBackoff
	for attempt := 1; attempt <= uc.commitAttempts; attempt++ {
		floor += uc.commitTimeout
		if attempt < uc.commitAttempts {
			floor += backoff
			backoff *= 2
		}
	}
	return floor
}

// RecoverStale moves requests left generating by a crashed process or an
// exhausted commit to error and opens a reconciliation exception for each,
// because the portal may have accepted the submission. staleAfter is raised to
// the longest possible live run so in-flight attempts are never touched.
func (uc *FilingUseCase) RecoverStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	if floor := uc.staleAfterFloor(); staleAfter < floor {
		staleAfter = floor
	}
	now := uc.now()
	stale, err := uc.repo.ListStale(ctx, domain.FilingGenerating, now.Add(-staleAfter))
	if err != nil {
		return 0, fmt.Errorf("list stale filings: %w", err)
	}

	recovered := 0
	for i := range stale {
		filing := &stale[i]
		cause := domain.WrapError(
			domain.ErrRunInterrupted,
			"recover stale filing",
			fmt.Errorf("generating since %s with no recorded outcome", filing.UpdatedAt.Format(time.RFC3339)),
		)
		filing.Status = domain.FilingError
		filing.ErrorCode = domain.ErrorCode(cause)
		filing.ErrorDetail = cause.Error()
		filing.CreditDebited = false
		filing.UpdatedAt = now
		reason := "automation outcome unknown; verify with the portal before re-attempting"

		err := uc.uow.WithinTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
			if err := tx.Filings.UpdateIfStatus(ctx, filing, domain.FilingGenerating); err != nil {
				return err
			}
			if err := NewProxyAllocator(tx.Proxies).RecordUsage(ctx, filing.ProxyID); err != nil && !domain.IsKind(err, domain.ErrProxyNotFound) {
				return err
			}
			return tx.Reconciliations.CreateException(ctx, uc.newException(filing, reason, now))
		})
		switch {
		case domain.IsKind(err, domain.ErrInvalidTransition):
			continue
		case err != nil:
			return recovered, fmt.Errorf("recover filing %s: %w", filing.ID, err)
		}

		recovered++
		uc.observer.AutomationFinished(domain.FilingError, filing.ErrorCode, now.Sub(filing.CreatedAt))
		uc.raiseReconciliation(filing, reason)
		uc.logger.Warn("filing_recovered_stale", "filing_id", filing.ID, "proxy_id", filing.ProxyID)
	}
	return recovered, nil
}

// SweepStale runs RecoverStale now and then every interval until ctx is done.
func (uc *FilingUseCase) SweepStale(ctx context.Context, interval, staleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := uc.RecoverStale(ctx, staleAfter); err != nil {
			uc.logger.Error("filing_recovery_failed", "error", err)
		} else if n > 0 {
			uc.logger.Info("filing_recovery_done", "recovered", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchAutomated checks the request synchronously and hands the run to a worker.
func (uc *FilingUseCase) DispatchAutomated(ctx context.Context, filingID string) (*domain.FilingRequest, error) {
	if uc.queue == nil {
		return nil, domain.WrapError(domain.ErrTemporary, "dispatch filing", errors.New("filing queue is not configured"))
	}
	filing, err := uc.loadAutomatedDraft(ctx, filingID)
	if err != nil {
		return nil, err
	}
	if err := uc.checkCredits(ctx, filing); err != nil {
		return nil, err
	}
	if err := uc.queue.PublishFilingRequested(ctx, filing.ID); err != nil {
		return nil, fmt.Errorf("publish filing run: %w", err)
	}
	uc.logger.Info("filing_dispatched", "filing_id", filing.ID, "region", filing.Jurisdiction.RegionKey)
	return filing, nil
}

// WaitNotifications blocks until in-flight appointment notifications finish.
func (uc *FilingUseCase) WaitNotifications() {
	uc.notifications.Wait()
}

func (uc *FilingUseCase) preflight(ctx context.Context, filingID string) (*domain.FilingRequest, *domain.ProxyResource, error) {
	filing, err := uc.loadAutomatedDraft(ctx, filingID)
	if err != nil {
		return nil, nil, err
	}
	if err := uc.checkCredits(ctx, filing); err != nil {
		return nil, nil, err
	}

	proxy, err := uc.allocator.Acquire(ctx, filing.Jurisdiction.RegionKey)
	if err != nil {
		if domain.IsKind(err, domain.ErrNoProxyAvailable) {
			uc.observer.PreflightRejected(domain.ErrorCode(err))
			uc.logger.Warn("filing_preflight_rejected", "filing_id", filing.ID, "reason", "no_proxy_available", "region", filing.Jurisdiction.RegionKey)
		}
		return nil, nil, err
	}
	uc.observer.ProxyAcquired(proxy.RegionKey)

	filing.Status = domain.FilingGenerating
	filing.ProxyID = proxy.ID
	filing.ErrorCode = ""
	filing.ErrorDetail = ""
	filing.UpdatedAt = uc.now()
	if err := uc.repo.UpdateIfStatus(ctx, filing, domain.FilingDraft); err != nil {
		return nil, nil, fmt.Errorf("set status=generating: %w", err)
	}
	return filing, proxy, nil
}

func (uc *FilingUseCase) loadAutomatedDraft(ctx context.Context, filingID string) (*domain.FilingRequest, error) {
	filing, err := uc.loadDraft(ctx, filingID, "run automated filing")
	if err != nil {
		return nil, err
	}
	if filing.Mode != domain.FilingAutomated {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"run automated filing",
			fmt.Errorf("filing %s is in %s mode", filing.ID, filing.Mode),
		)
	}
	return filing, nil
}

func (uc *FilingUseCase) checkCredits(ctx context.Context, filing *domain.FilingRequest) error {
	balance, err := uc.ledger.CheckAvailable(ctx, filing.AccountID)
	if err != nil {
		return err
	}
	if balance.Available < 1 {
		uc.observer.PreflightRejected("insufficient_credit")
		uc.logger.Warn("filing_preflight_rejected", "filing_id", filing.ID, "reason", "insufficient_credit", "account_id", filing.AccountID)
		return domain.WrapError(
			domain.ErrInsufficientCredit,
			"run automated filing",
			fmt.Errorf("account %s has %d credits available", filing.AccountID, balance.Available),
		)
	}
	return nil
}

type automationOutcome struct {
	result domain.AutomationResult
	err    error
}

// runAutomation bounds the collaborator call by automationTimeout even when the
// collaborator ignores its context. ctx must already be detached from the caller.
func (uc *FilingUseCase) runAutomation(ctx context.Context, filing *domain.FilingRequest, proxy *domain.ProxyResource) (domain.AutomationResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, uc.automationTimeout)
	defer cancel()

	req := domain.AutomationRequest{
		FilingID:      filing.ID,
		CaseRef:       filing.CaseRef,
		WorkerRef:     filing.WorkerRef,
		Motive:        filing.Motive,
		DisputeDate:   filing.DisputeDate,
		Jurisdiction:  filing.Jurisdiction,
		ProxyEndpoint: proxy.Endpoint,
	}

	done := make(chan automationOutcome, 1)
	go func() {
		result, err := uc.automation.Submit(runCtx, req)
		done <- automationOutcome{result: result, err: err}
	}()

	var out automationOutcome
	select {
	case out = <-done:
	case <-runCtx.Done():
		out = automationOutcome{err: runCtx.Err()}
	}

	switch {
	case out.err != nil && errors.Is(out.err, context.DeadlineExceeded):
		return domain.AutomationResult{}, domain.WrapError(
			domain.ErrAutomationTimeout,
			"run automation",
			fmt.Errorf("no result after %s: %w", uc.automationTimeout, out.err),
		)
	case out.err != nil:
		return domain.AutomationResult{}, domain.WrapError(domain.ErrAutomationFailure, "run automation", out.err)
	case !out.result.Success:
		reason := out.result.Reason
		if reason == "" {
			reason = "automation reported failure without reason"
		}
		return domain.AutomationResult{}, domain.WrapError(domain.ErrAutomationFailure, "run automation", errors.New(reason))
	case out.result.OfficialRef == "":
		return domain.AutomationResult{}, domain.WrapError(
			domain.ErrAutomationFailure,
			"run automation",
			errors.New("automation reported success without an official reference"),
		)
	}
	return out.result, nil
}

// commitSuccess persists the filing reference, appointment, debit and proxy
// usage as one transaction. A failed debit never undoes the filing: the request
// still completes and a reconciliation exception is raised instead.
func (uc *FilingUseCase) commitSuccess(ctx context.Context, filing *domain.FilingRequest, result domain.AutomationResult) error {
	now := uc.now()
	appointment := uc.calendar.NextBusinessDay(now, 1)

	filing.Status = domain.FilingCompleted
	filing.OfficialRef = result.OfficialRef
	filing.AppointmentDate = &appointment
	filing.ErrorCode = ""
	filing.ErrorDetail = ""
	filing.UpdatedAt = now
	filing.CompletedAt = &now

	var reconcileReason string
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
		reconcileReason = ""
		filing.CreditDebited = false

		_, debitErr := NewCreditLedger(tx.Accounts).Debit(ctx, filing.AccountID, filing.ID)
		switch {
		case debitErr == nil:
			filing.CreditDebited = true
		case domain.IsKind(debitErr, domain.ErrInsufficientCredit), domain.IsKind(debitErr, domain.ErrAccountNotFound):
			reconcileReason = debitErr.Error()
		default:
			return debitErr
		}

		if err := NewProxyAllocator(tx.Proxies).RecordUsage(ctx, filing.ProxyID); err != nil {
			return err
		}
		if err := tx.Filings.UpdateIfStatus(ctx, filing, domain.FilingGenerating); err != nil {
			return fmt.Errorf("set status=completed: %w", err)
		}
		if reconcileReason != "" {
			return tx.Reconciliations.CreateException(ctx, uc.newException(filing, reconcileReason, now))
		}
		return nil
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidTransition) {
			return err
		}
		return uc.commitSuccessWithoutDebit(ctx, filing, err)
	}

	if reconcileReason != "" {
		uc.raiseReconciliation(filing, reconcileReason)
	}
	uc.logger.Info("filing_completed",
		"filing_id", filing.ID,
		"official_ref", filing.OfficialRef,
		"appointment_date", appointment.Format("2006-01-02"),
		"credit_debited", filing.CreditDebited,
		"proxy_id", filing.ProxyID,
	)
	return nil
}

// commitSuccessWithoutDebit runs when the ledger transaction itself failed. The
// external filing is real, so it is recorded as completed without a debit.
func (uc *FilingUseCase) commitSuccessWithoutDebit(ctx context.Context, filing *domain.FilingRequest, cause error) error {
	now := uc.now()
	reason := fmt.Sprintf("ledger transaction failed: %v", cause)
	filing.CreditDebited = false

	err := uc.uow.WithinTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
		if err := tx.Filings.UpdateIfStatus(ctx, filing, domain.FilingGenerating); err != nil {
			return fmt.Errorf("set status=completed: %w", err)
		}
		return tx.Reconciliations.CreateException(ctx, uc.newException(filing, reason, now))
	})
	if err != nil {
		uc.logger.Error("filing_commit_failed",
			"filing_id", filing.ID,
			"official_ref", filing.OfficialRef,
			"error", err,
			"cause", cause,
		)
		return fmt.Errorf("commit completed filing %s (official ref %s): %w", filing.ID, filing.OfficialRef, errors.Join(cause, err))
	}

	if err := uc.allocator.RecordUsage(ctx, filing.ProxyID); err != nil {
		uc.logger.Error("proxy_usage_not_recorded", "filing_id", filing.ID, "proxy_id", filing.ProxyID, "error", err)
	}
	uc.raiseReconciliation(filing, reason)
	return nil
}

// commitFailure moves the request to error. The proxy carried traffic, so its
// usage is recorded; no credit is debited.
func (uc *FilingUseCase) commitFailure(ctx context.Context, filing *domain.FilingRequest, runErr error) error {
	filing.Status = domain.FilingError
	filing.ErrorCode = domain.ErrorCode(runErr)
	filing.ErrorDetail = runErr.Error()
	filing.CreditDebited = false
	filing.UpdatedAt = uc.now()

	err := uc.uow.WithinTx(ctx, func(ctx context.Context, tx ports.TxStores) error {
		if err := NewProxyAllocator(tx.Proxies).RecordUsage(ctx, filing.ProxyID); err != nil {
			return err
		}
		if err := tx.Filings.UpdateIfStatus(ctx, filing, domain.FilingGenerating); err != nil {
			return fmt.Errorf("set status=error: %w", err)
		}
		return nil
	})
	if err != nil {
		uc.logger.Error("filing_commit_failed", "filing_id", filing.ID, "error", err, "cause", runErr)
		return fmt.Errorf("mark filing failed: %w", err)
	}

	uc.logger.Warn("filing_failed",
		"filing_id", filing.ID,
		"error_code", filing.ErrorCode,
		"error", filing.ErrorDetail,
		"proxy_id", filing.ProxyID,
	)
	return nil
}

func (uc *FilingUseCase) newException(filing *domain.FilingRequest, reason string, at time.Time) *domain.ReconciliationException {
	return &domain.ReconciliationException{
		ID:        uuid.NewString(),
		FilingID:  filing.ID,
		AccountID: filing.AccountID,
		Reason:    reason,
		CreatedAt: at,
	}
}

func (uc *FilingUseCase) raiseReconciliation(filing *domain.FilingRequest, reason string) {
	uc.observer.ReconciliationRaised()
	uc.logger.Error("ledger_reconciliation_required",
		"filing_id", filing.ID,
		"account_id", filing.AccountID,
		"official_ref", filing.OfficialRef,
		"reason", reason,
		"error", domain.ErrLedgerReconciliation,
	)
}

// notifyAsync is fire-and-forget from the state machine's point of view.
func (uc *FilingUseCase) notifyAsync(ctx context.Context, filing domain.FilingRequest) {
	if uc.notifier == nil {
		return
	}
	uc.notifications.Add(1)
	go func() {
		defer uc.notifications.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.notifyTimeout)
		defer cancel()
		if err := uc.notifier.NotifyAppointment(notifyCtx, filing); err != nil {
			uc.logger.Warn("appointment_notification_failed", "filing_id", filing.ID, "error", err)
		}
	}()
}
