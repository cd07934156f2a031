package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/ports"
)

type ReconciliationUseCase struct {
	store ports.ReconciliationStore
	now   func() time.Time
}

func NewReconciliationUseCase(store ports.ReconciliationStore) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (uc *ReconciliationUseCase) ListOpen(ctx context.Context) ([]domain.ReconciliationException, error) {
	items, err := uc.store.ListExceptions(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation exceptions: %w", err)
	}
	return items, nil
}

func (uc *ReconciliationUseCase) Resolve(ctx context.Context, exceptionID string) error {
	if strings.TrimSpace(exceptionID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "resolve reconciliation", errors.New("exception id is required"))
	}
	if err := uc.store.ResolveException(ctx, exceptionID, uc.now()); err != nil {
		return fmt.Errorf("resolve reconciliation exception: %w", err)
	}
	return nil
}
