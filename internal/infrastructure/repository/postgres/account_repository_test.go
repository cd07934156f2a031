package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return db, mock, func() { _ = db.Close() }
}

func TestDebitOneReturnsLedgerEntry(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewAccountRepository(db)
	at := time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("WITH prev AS").
		WithArgs("acct-1", at, sqlmock.AnyArg(), "filing-1").
		WillReturnRows(sqlmock.NewRows([]string{"source", "available_after"}).AddRow("allowance", 2))

	entry, err := repo.DebitOne(context.Background(), "acct-1", "filing-1", at)
	if err != nil {
		t.Fatalf("DebitOne() error = %v", err)
	}
	if entry.Source != domain.CreditSourceAllowance || entry.AvailableAfter != 2 || entry.Amount != -1 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.ID == "" || entry.FilingID != "filing-1" {
		t.Fatalf("entry identity not populated: %+v", entry)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDebitOneReportsInsufficientCreditWhenAccountExists(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("WITH prev AS").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.DebitOne(context.Background(), "acct-1", "filing-1", time.Now())
	if !domain.IsKind(err, domain.ErrInsufficientCredit) {
		t.Fatalf("expected ErrInsufficientCredit, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDebitOneReportsMissingAccount(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("WITH prev AS").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.DebitOne(context.Background(), "ghost", "filing-1", time.Now())
	if !domain.IsKind(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetAccountReturnsDomainNotFound(t *testing.T) {
	db, mock, done := newMockDB(t)
	defer done()
	repo := NewAccountRepository(db)

	mock.ExpectQuery("SELECT owner_id, plan, monthly_allowance").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetAccount(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
