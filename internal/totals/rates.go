package totals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/factora-erp/factora/internal/shared"
)

// ErrRateNotFound indicates the tenant has no configured tax rate.
var ErrRateNotFound = fmt.Errorf("totals: tax rate %w", shared.ErrNotFound)

// RateProvider resolves the percent tax rate configured for a tenant.
type RateProvider interface {
	TenantTaxRate(ctx context.Context, tenantID int64) (decimal.Decimal, error)
}

// PGRates reads tenant tax rates from Postgres.
type PGRates struct {
	pool *pgxpool.Pool
}

// NewPGRates constructs PGRates.
func NewPGRates(pool *pgxpool.Pool) *PGRates {
	return &PGRates{pool: pool}
}

// TenantTaxRate fetches the configured rate for one tenant.
func (p *PGRates) TenantTaxRate(ctx context.Context, tenantID int64) (decimal.Decimal, error) {
	var raw string
	err := p.pool.QueryRow(ctx, `SELECT tax_rate::text FROM tenant_settings WHERE tenant_id=$1`, tenantID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrRateNotFound
		}
		return decimal.Zero, fmt.Errorf("totals: query tax rate: %w", err)
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("totals: parse tax rate: %w", err)
	}
	return rate, nil
}

// CachedRates wraps a RateProvider with a redis cache. Rates change rarely,
// so misses are collapsed through singleflight and hits skip the database
// entirely until the TTL expires.
type CachedRates struct {
	next  RateProvider
	redis *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewCachedRates constructs CachedRates with the given entry TTL.
func NewCachedRates(next RateProvider, rdb *redis.Client, ttl time.Duration) *CachedRates {
	return &CachedRates{next: next, redis: rdb, ttl: ttl}
}

func rateKey(tenantID int64) string {
	return fmt.Sprintf("tenant:%d:tax_rate", tenantID)
}

// TenantTaxRate returns the cached rate, falling through to the underlying
// provider on a miss. Cache errors degrade to the underlying provider
// rather than failing the caller.
func (c *CachedRates) TenantTaxRate(ctx context.Context, tenantID int64) (decimal.Decimal, error) {
	key := rateKey(tenantID)
	if raw, err := c.redis.Get(ctx, key).Result(); err == nil {
		if rate, perr := decimal.NewFromString(raw); perr == nil {
			return rate, nil
		}
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		rate, err := c.next.TenantTaxRate(ctx, tenantID)
		if err != nil {
			return decimal.Zero, err
		}
		c.redis.Set(ctx, key, rate.String(), c.ttl)
		return rate, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// Invalidate drops the cached rate for one tenant, forcing the next read
// through to the underlying provider.
func (c *CachedRates) Invalidate(ctx context.Context, tenantID int64) error {
	return c.redis.Del(ctx, rateKey(tenantID)).Err()
}
