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

// ProxyAllocator hands out region-scoped egress resources. Allocation is
// advisory: a resource may serve several attempts at once, and usage is only
// counted when the automation actually sends traffic through it.
type ProxyAllocator struct {
	proxies ports.ProxyStore
	now     func() time.Time
}

func NewProxyAllocator(proxies ports.ProxyStore) *ProxyAllocator {
	return &ProxyAllocator{
		proxies: proxies,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Acquire never falls back to a resource outside regionKey.
func (a *ProxyAllocator) Acquire(ctx context.Context, regionKey string) (*domain.ProxyResource, error) {
	if strings.TrimSpace(regionKey) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "acquire proxy", errors.New("region is required"))
	}
	proxy, err := a.proxies.AcquireLeastUsed(ctx, regionKey, a.now())
	if err != nil {
		return nil, fmt.Errorf("acquire proxy for region %s: %w", regionKey, err)
	}
	if !proxy.EligibleFor(regionKey) {
		return nil, domain.WrapError(
			domain.ErrNoProxyAvailable,
			"acquire proxy",
			fmt.Errorf("store returned proxy %s outside region %s", proxy.ID, regionKey),
		)
	}
	return proxy, nil
}

func (a *ProxyAllocator) RecordUsage(ctx context.Context, proxyID string) error {
	if strings.TrimSpace(proxyID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record proxy usage", errors.New("proxy id is required"))
	}
	if err := a.proxies.IncrementUsage(ctx, proxyID, a.now()); err != nil {
		return fmt.Errorf("record proxy usage: %w", err)
	}
	return nil
}
