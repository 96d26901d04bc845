package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *OnHandCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewOnHandCache(client, time.Minute)
}

func TestOnHandCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	tenantID := uuid.New()
	filter := BalanceFilter{Limit: 50}

	_, ok := cache.Get(ctx, tenantID, filter)
	require.False(t, ok)

	balances := []Balance{{
		TenantID:   tenantID,
		ProductID:  uuid.New(),
		LocationID: uuid.New(),
		Qty:        dec("12.5"),
		AvgCost:    dec("3.20"),
	}}
	cache.Set(ctx, tenantID, filter, balances)

	got, ok := cache.Get(ctx, tenantID, filter)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.True(t, got[0].Qty.Equal(dec("12.5")))
	require.True(t, got[0].AvgCost.Equal(dec("3.20")))
}

func TestOnHandCacheInvalidateDropsTenantSnapshots(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()
	filter := BalanceFilter{}

	cache.Set(ctx, tenantA, filter, []Balance{{TenantID: tenantA, Qty: dec("1")}})
	cache.Set(ctx, tenantB, filter, []Balance{{TenantID: tenantB, Qty: dec("2")}})

	cache.Invalidate(ctx, tenantA)

	_, ok := cache.Get(ctx, tenantA, filter)
	require.False(t, ok, "invalidated tenant must miss")
	_, ok = cache.Get(ctx, tenantB, filter)
	require.True(t, ok, "other tenants keep their snapshots")
}

func TestOnHandCacheNilClientIsNoop(t *testing.T) {
	var cache *OnHandCache
	ctx := context.Background()
	cache.Set(ctx, uuid.New(), BalanceFilter{}, nil)
	cache.Invalidate(ctx, uuid.New())
	_, ok := cache.Get(ctx, uuid.New(), BalanceFilter{})
	require.False(t, ok)
}
