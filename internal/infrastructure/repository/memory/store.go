package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
)

// Store keeps accounts, proxies, filings and reconciliation exceptions in
// process. Every operation holds one mutex, so conditional updates are atomic
// the same way a single SQL statement is.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	accounts        map[string]domain.CreditAccount
	ledger          []domain.LedgerEntry
	proxies         map[string]domain.ProxyResource
	filings         map[string]domain.FilingRequest
	reconciliations map[string]domain.ReconciliationException
}

func New() *Store {
	return &Store{state: &state{
		accounts:        make(map[string]domain.CreditAccount),
		proxies:         make(map[string]domain.ProxyResource),
		filings:         make(map[string]domain.FilingRequest),
		reconciliations: make(map[string]domain.ReconciliationException),
	}}
}

// PutAccount and PutProxy seed reference data; they stand in for the
// administrative provisioning that happens outside the pipeline.
func (s *Store) PutAccount(account domain.CreditAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[account.OwnerID] = account
}

func (s *Store) PutProxy(proxy domain.ProxyResource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.proxies[proxy.ID] = proxy
}

func (s *Store) LedgerEntries(accountID string) []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LedgerEntry, 0)
	for _, entry := range s.state.ledger {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	return out
}

// WithinTx runs fn against a snapshot-protected view; an error restores the snapshot.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.TxStores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	view := &txView{state: s.state}
	if err := fn(ctx, ports.TxStores{
		Filings:         view,
		Accounts:        view,
		Proxies:         view,
		Reconciliations: view,
	}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (st *state) clone() *state {
	out := &state{
		accounts:        make(map[string]domain.CreditAccount, len(st.accounts)),
		ledger:          append([]domain.LedgerEntry(nil), st.ledger...),
		proxies:         make(map[string]domain.ProxyResource, len(st.proxies)),
		filings:         make(map[string]domain.FilingRequest, len(st.filings)),
		reconciliations: make(map[string]domain.ReconciliationException, len(st.reconciliations)),
	}
	for k, v := range st.accounts {
		out.accounts[k] = v
	}
	for k, v := range st.proxies {
		out.proxies[k] = v
	}
	for k, v := range st.filings {
		out.filings[k] = v
	}
	for k, v := range st.reconciliations {
		out.reconciliations[k] = v
	}
	return out
}

func (st *state) getAccount(accountID string) (*domain.CreditAccount, error) {
	account, ok := st.accounts[accountID]
	if !ok {
		return nil, domain.WrapError(domain.ErrAccountNotFound, "get account", fmt.Errorf("id=%s", accountID))
	}
	return &account, nil
}

func (st *state) debitOne(accountID, filingID string, at time.Time) (*domain.LedgerEntry, error) {
	account, ok := st.accounts[accountID]
	if !ok {
		return nil, domain.WrapError(domain.ErrAccountNotFound, "debit account", fmt.Errorf("id=%s", accountID))
	}
	updated, source, ok := account.ApplyDebit()
	if !ok {
		return nil, domain.WrapError(domain.ErrInsufficientCredit, "debit account", fmt.Errorf("id=%s available=%d", accountID, account.Available()))
	}
	updated.UpdatedAt = at
	st.accounts[accountID] = updated

	entry := domain.LedgerEntry{
		ID:             uuid.NewString(),
		AccountID:      accountID,
		FilingID:       filingID,
		Amount:         -1,
		Source:         source,
		AvailableAfter: updated.Available(),
		CreatedAt:      at,
	}
	st.ledger = append(st.ledger, entry)
	return &entry, nil
}

func (st *state) acquireLeastUsed(regionKey string, at time.Time) (*domain.ProxyResource, error) {
	var best *domain.ProxyResource
	for _, proxy := range st.proxies {
		if !proxy.EligibleFor(regionKey) {
			continue
		}
		candidate := proxy
		if best == nil || candidate.LessUsedThan(*best) {
			best = &candidate
		}
	}
	if best == nil {
		return nil, domain.WrapError(domain.ErrNoProxyAvailable, "acquire proxy", fmt.Errorf("region=%s", regionKey))
	}
	stamp := at
	best.LastAcquiredAt = &stamp
	st.proxies[best.ID] = *best
	return best, nil
}

func (st *state) incrementUsage(proxyID string, at time.Time) error {
	proxy, ok := st.proxies[proxyID]
	if !ok {
		return domain.WrapError(domain.ErrProxyNotFound, "increment proxy usage", fmt.Errorf("id=%s", proxyID))
	}
	stamp := at
	proxy.UsageCount++
	proxy.LastUsedAt = &stamp
	st.proxies[proxyID] = proxy
	return nil
}

func (st *state) listProxies(regionKey string) []domain.ProxyResource {
	out := make([]domain.ProxyResource, 0)
	for _, proxy := range st.proxies {
		if domain.SameRegionKey(proxy.RegionKey, regionKey) {
			out = append(out, proxy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (st *state) setAvailability(proxyID string, available bool) error {
	proxy, ok := st.proxies[proxyID]
	if !ok {
		return domain.WrapError(domain.ErrProxyNotFound, "set proxy availability", fmt.Errorf("id=%s", proxyID))
	}
	proxy.Available = available
	st.proxies[proxyID] = proxy
	return nil
}

func (st *state) createFiling(filing *domain.FilingRequest) error {
	if _, exists := st.filings[filing.ID]; exists {
		return fmt.Errorf("filing already exists: id=%s", filing.ID)
	}
	st.filings[filing.ID] = *filing
	return nil
}

func (st *state) getFiling(id string) (*domain.FilingRequest, error) {
	filing, ok := st.filings[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrFilingNotFound, "get filing", fmt.Errorf("id=%s", id))
	}
	return &filing, nil
}

func (st *state) listFilingsByCase(caseRef string) []domain.FilingRequest {
	out := make([]domain.FilingRequest, 0)
	for _, filing := range st.filings {
		if filing.CaseRef == caseRef {
			out = append(out, filing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (st *state) listFilingsStale(status domain.FilingStatus, updatedBefore time.Time) []domain.FilingRequest {
	out := make([]domain.FilingRequest, 0)
	for _, filing := range st.filings {
		if filing.Status == status && filing.UpdatedAt.Before(updatedBefore) {
			out = append(out, filing)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out
}

func (st *state) updateFilingIfStatus(filing *domain.FilingRequest, expected domain.FilingStatus) error {
	current, ok := st.filings[filing.ID]
	if !ok {
		return domain.WrapError(domain.ErrFilingNotFound, "update filing", fmt.Errorf("id=%s", filing.ID))
	}
	if current.Status != expected {
		return domain.WrapError(
			domain.ErrInvalidTransition,
			"update filing",
			fmt.Errorf("id=%s status=%s expected=%s", filing.ID, current.Status, expected),
		)
	}
	st.filings[filing.ID] = *filing
	return nil
}

func (st *state) createException(exception *domain.ReconciliationException) error {
	st.reconciliations[exception.ID] = *exception
	return nil
}

func (st *state) listExceptions(includeResolved bool) []domain.ReconciliationException {
	out := make([]domain.ReconciliationException, 0)
	for _, item := range st.reconciliations {
		if !includeResolved && item.ResolvedAt != nil {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (st *state) resolveException(id string, at time.Time) error {
	item, ok := st.reconciliations[id]
	if !ok || item.ResolvedAt != nil {
		return domain.WrapError(domain.ErrInvalidInput, "resolve reconciliation", fmt.Errorf("no open exception id=%s", id))
	}
	stamp := at
	item.ResolvedAt = &stamp
	st.reconciliations[id] = item
	return nil
}
