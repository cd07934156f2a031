package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// Store bundles the repositories over one connection pool and implements
// ports.UnitOfWork.
type Store struct {
	db *sql.DB

	Accounts        *AccountRepository
	Proxies         *ProxyRepository
	Filings         *FilingRepository
	Reconciliations *ReconciliationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:              db,
		Accounts:        NewAccountRepository(db),
		Proxies:         NewProxyRepository(db),
		Filings:         NewFilingRepository(db),
		Reconciliations: NewReconciliationRepository(db),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.TxStores) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, ports.TxStores{
		Filings:         NewFilingRepository(tx),
		Accounts:        NewAccountRepository(tx),
		Proxies:         NewProxyRepository(tx),
		Reconciliations: NewReconciliationRepository(tx),
	}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS credit_accounts (
	owner_id TEXT PRIMARY KEY,
	plan TEXT NOT NULL,
	monthly_allowance INTEGER NOT NULL CHECK (monthly_allowance >= 0),
	consumed_in_cycle INTEGER NOT NULL DEFAULT 0 CHECK (consumed_in_cycle >= 0),
	extra_balance INTEGER NOT NULL DEFAULT 0 CHECK (extra_balance >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS credit_ledger_entries (
	id TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES credit_accounts(owner_id),
	filing_id TEXT NOT NULL,
	amount INTEGER NOT NULL,
	source TEXT NOT NULL,
	available_after INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_credit_ledger_entries_account ON credit_ledger_entries(account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS proxy_resources (
	id TEXT PRIMARY KEY,
	region_key TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	usage_count BIGINT NOT NULL DEFAULT 0,
	last_used_at TIMESTAMPTZ,
	last_acquired_at TIMESTAMPTZ,
	available BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE INDEX IF NOT EXISTS idx_proxy_resources_region ON proxy_resources(lower(region_key), available, usage_count);

CREATE TABLE IF NOT EXISTS filing_requests (
	id TEXT PRIMARY KEY,
	case_ref TEXT NOT NULL,
	account_id TEXT NOT NULL DEFAULT '',
	worker_ref TEXT NOT NULL,
	notify_email TEXT NOT NULL DEFAULT '',
	jurisdiction JSONB NOT NULL,
	mode TEXT NOT NULL,
	motive TEXT NOT NULL,
	dispute_date DATE NOT NULL,
	status TEXT NOT NULL,
	proxy_id TEXT NOT NULL DEFAULT '',
	official_ref TEXT NOT NULL DEFAULT '',
	appointment_date DATE,
	error_code TEXT NOT NULL DEFAULT '',
	error_detail TEXT NOT NULL DEFAULT '',
	credit_debited BOOLEAN NOT NULL DEFAULT FALSE,
	guide JSONB,
	previous_attempt_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_filing_requests_case ON filing_requests(case_ref, created_at);
CREATE INDEX IF NOT EXISTS idx_filing_requests_status_updated ON filing_requests(status, updated_at);

CREATE TABLE IF NOT EXISTS ledger_reconciliations (
	id TEXT PRIMARY KEY,
	filing_id TEXT NOT NULL,
	account_id TEXT NOT NULL,
	reason TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	resolved_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ledger_reconciliations_open ON ledger_reconciliations(created_at) WHERE resolved_at IS NULL;
`
