package totals

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type countingRates struct {
	rate  decimal.Decimal
	calls int
}

func (c *countingRates) TenantTaxRate(ctx context.Context, tenantID int64) (decimal.Decimal, error) {
	c.calls++
	return c.rate, nil
}

func newTestCache(t *testing.T, next RateProvider, ttl time.Duration) (*CachedRates, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCachedRates(next, rdb, ttl), mr
}

func TestCachedRatesHit(t *testing.T) {
	src := &countingRates{rate: dec("18")}
	cache, _ := newTestCache(t, src, time.Minute)
	ctx := context.Background()

	first, err := cache.TenantTaxRate(ctx, 7)
	require.NoError(t, err)
	require.True(t, first.Equal(dec("18")))
	require.Equal(t, 1, src.calls)

	second, err := cache.TenantTaxRate(ctx, 7)
	require.NoError(t, err)
	require.True(t, second.Equal(dec("18")))
	require.Equal(t, 1, src.calls, "second read must come from cache")
}

func TestCachedRatesExpiry(t *testing.T) {
	src := &countingRates{rate: dec("18")}
	cache, mr := newTestCache(t, src, time.Minute)
	ctx := context.Background()

	_, err := cache.TenantTaxRate(ctx, 7)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.TenantTaxRate(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 2, src.calls, "expired entry must fall through")
}

func TestCachedRatesInvalidate(t *testing.T) {
	src := &countingRates{rate: dec("18")}
	cache, _ := newTestCache(t, src, time.Minute)
	ctx := context.Background()

	_, err := cache.TenantTaxRate(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, 7))

	src.rate = dec("19")
	rate, err := cache.TenantTaxRate(ctx, 7)
	require.NoError(t, err)
	require.True(t, rate.Equal(dec("19")))
	require.Equal(t, 2, src.calls)
}
