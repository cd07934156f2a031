package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dapevi80/v0-project-from-scratch-sub001/internal/core/domain"
)

type ProxyRepository struct {
	db dbtx
}

func NewProxyRepository(db dbtx) *ProxyRepository {
	return &ProxyRepository{db: db}
}

const acquireLeastUsedSQL = `
UPDATE proxy_resources
SET last_acquired_at = $2
WHERE id = (
	SELECT id FROM proxy_resources
	WHERE lower(region_key) = lower($1) AND available
	ORDER BY usage_count ASC, last_used_at ASC NULLS FIRST, last_acquired_at ASC NULLS FIRST, id ASC
	LIMIT 1
	FOR UPDATE
)
RETURNING id, region_key, endpoint, usage_count, last_used_at, last_acquired_at, available
`

// AcquireLeastUsed picks and stamps the least-used eligible proxy in one
// statement. A proxy may serve several attempts at once, so a row locked by a
// concurrent acquisition or usage commit is waited on, never skipped. When the
// awaited row no longer qualifies after the lock is released Postgres returns
// no row, so the selection runs once more before the pool is reported empty.
func (r *ProxyRepository) AcquireLeastUsed(ctx context.Context, regionKey string, at time.Time) (*domain.ProxyResource, error) {
	var (
		proxy domain.ProxyResource
		err   error
	)
	for attempt := 0; attempt < 2; attempt++ {
		proxy, err = scanProxy(r.db.QueryRowContext(ctx, acquireLeastUsedSQL, regionKey, at))
		if !errors.Is(err, sql.ErrNoRows) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNoProxyAvailable, "acquire proxy", fmt.Errorf("region=%s", regionKey))
		}
		return nil, fmt.Errorf("acquire proxy: %w", err)
	}
	return &proxy, nil
}

func (r *ProxyRepository) IncrementUsage(ctx context.Context, proxyID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE proxy_resources
SET usage_count = usage_count + 1, last_used_at = $2
WHERE id = $1
`, proxyID, at)
	if err != nil {
		return fmt.Errorf("increment proxy usage: %w", err)
	}
	return expectOneRow(result, domain.ErrProxyNotFound, "increment proxy usage", proxyID)
}

func (r *ProxyRepository) ListByRegion(ctx context.Context, regionKey string) ([]domain.ProxyResource, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, region_key, endpoint, usage_count, last_used_at, last_acquired_at, available
FROM proxy_resources
WHERE lower(region_key) = lower($1)
ORDER BY id
`, regionKey)
	if err != nil {
		return nil, fmt.Errorf("list proxies: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ProxyResource, 0)
	for rows.Next() {
		proxy, err := scanProxy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proxy: %w", err)
		}
		out = append(out, proxy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate proxies: %w", err)
	}
	return out, nil
}

func (r *ProxyRepository) SetAvailability(ctx context.Context, proxyID string, available bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE proxy_resources SET available = $2 WHERE id = $1`, proxyID, available)
	if err != nil {
		return fmt.Errorf("set proxy availability: %w", err)
	}
	return expectOneRow(result, domain.ErrProxyNotFound, "set proxy availability", proxyID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProxy(row rowScanner) (domain.ProxyResource, error) {
	var proxy domain.ProxyResource
	err := row.Scan(
		&proxy.ID,
		&proxy.RegionKey,
		&proxy.Endpoint,
		&proxy.UsageCount,
		&proxy.LastUsedAt,
		&proxy.LastAcquiredAt,
		&proxy.Available,
	)
	return proxy, err
}

func expectOneRow(result sql.Result, kind error, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(kind, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
