package memory

import (
	"context"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func (s *Store) GetAccount(_ context.Context, accountID string) (*domain.CreditAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getAccount(accountID)
}

func (s *Store) DebitOne(_ context.Context, accountID, filingID string, at time.Time) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.debitOne(accountID, filingID, at)
}

func (s *Store) AcquireLeastUsed(_ context.Context, regionKey string, at time.Time) (*domain.ProxyResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.acquireLeastUsed(regionKey, at)
}

func (s *Store) IncrementUsage(_ context.Context, proxyID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.incrementUsage(proxyID, at)
}

func (s *Store) ListByRegion(_ context.Context, regionKey string) ([]domain.ProxyResource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listProxies(regionKey), nil
}

func (s *Store) SetAvailability(_ context.Context, proxyID string, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.setAvailability(proxyID, available)
}

func (s *Store) Create(_ context.Context, filing *domain.FilingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createFiling(filing)
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.FilingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.getFiling(id)
}

func (s *Store) ListByCase(_ context.Context, caseRef string) ([]domain.FilingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listFilingsByCase(caseRef), nil
}

func (s *Store) ListStale(_ context.Context, status domain.FilingStatus, updatedBefore time.Time) ([]domain.FilingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listFilingsStale(status, updatedBefore), nil
}

func (s *Store) UpdateIfStatus(_ context.Context, filing *domain.FilingRequest, expected domain.FilingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.updateFilingIfStatus(filing, expected)
}

func (s *Store) CreateException(_ context.Context, exception *domain.ReconciliationException) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createException(exception)
}

func (s *Store) ListExceptions(_ context.Context, includeResolved bool) ([]domain.ReconciliationException, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.listExceptions(includeResolved), nil
}

func (s *Store) ResolveException(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.resolveException(id, at)
}

// txView exposes the same operations without locking; WithinTx holds the lock.
type txView struct {
	state *state
}

func (v *txView) GetAccount(_ context.Context, accountID string) (*domain.CreditAccount, error) {
	return v.state.getAccount(accountID)
}

func (v *txView) DebitOne(_ context.Context, accountID, filingID string, at time.Time) (*domain.LedgerEntry, error) {
	return v.state.debitOne(accountID, filingID, at)
}

func (v *txView) AcquireLeastUsed(_ context.Context, regionKey string, at time.Time) (*domain.ProxyResource, error) {
	return v.state.acquireLeastUsed(regionKey, at)
}

func (v *txView) IncrementUsage(_ context.Context, proxyID string, at time.Time) error {
	return v.state.incrementUsage(proxyID, at)
}

func (v *txView) ListByRegion(_ context.Context, regionKey string) ([]domain.ProxyResource, error) {
	return v.state.listProxies(regionKey), nil
}

func (v *txView) SetAvailability(_ context.Context, proxyID string, available bool) error {
	return v.state.setAvailability(proxyID, available)
}

func (v *txView) Create(_ context.Context, filing *domain.FilingRequest) error {
	return v.state.createFiling(filing)
}

func (v *txView) GetByID(_ context.Context, id string) (*domain.FilingRequest, error) {
	return v.state.getFiling(id)
}

func (v *txView) ListByCase(_ context.Context, caseRef string) ([]domain.FilingRequest, error) {
	return v.state.listFilingsByCase(caseRef), nil
}

func (v *txView) ListStale(_ context.Context, status domain.FilingStatus, updatedBefore time.Time) ([]domain.FilingRequest, error) {
	return v.state.listFilingsStale(status, updatedBefore), nil
}

func (v *txView) UpdateIfStatus(_ context.Context, filing *domain.FilingRequest, expected domain.FilingStatus) error {
	return v.state.updateFilingIfStatus(filing, expected)
}

func (v *txView) CreateException(_ context.Context, exception *domain.ReconciliationException) error {
	return v.state.createException(exception)
}

func (v *txView) ListExceptions(_ context.Context, includeResolved bool) ([]domain.ReconciliationException, error) {
	return v.state.listExceptions(includeResolved), nil
}

func (v *txView) ResolveException(_ context.Context, id string, at time.Time) error {
	return v.state.resolveException(id, at)
}
