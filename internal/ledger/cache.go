package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OnHandCache keeps short-lived snapshots of on-hand listings in Redis.
// Invalidation bumps a per-tenant version key, so stale snapshots simply stop
// being addressable and expire on their own TTL.
type OnHandCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOnHandCache constructs the cache.
func NewOnHandCache(client *redis.Client, ttl time.Duration) *OnHandCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OnHandCache{client: client, ttl: ttl}
}

func (c *OnHandCache) versionKey(tenantID uuid.UUID) string {
	return fmt.Sprintf("stock:onhand:ver:%s", tenantID)
}

func (c *OnHandCache) snapshotKey(ctx context.Context, tenantID uuid.UUID, filter BalanceFilter) string {
	ver, err := c.client.Get(ctx, c.versionKey(tenantID)).Int64()
	if err != nil {
		ver = 0
	}
	return fmt.Sprintf("stock:onhand:%s:%d:%s:%s:%t:%d", tenantID, ver, filter.ProductID, filter.LocationID, filter.IncludeZero, filter.Limit)
}

// Get returns a cached snapshot for the filter, if present.
func (c *OnHandCache) Get(ctx context.Context, tenantID uuid.UUID, filter BalanceFilter) ([]Balance, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, c.snapshotKey(ctx, tenantID, filter)).Bytes()
	if err != nil {
		return nil, false
	}
	var balances []Balance
	if err := json.Unmarshal(payload, &balances); err != nil {
		return nil, false
	}
	return balances, true
}

// Set stores a snapshot for the filter.
func (c *OnHandCache) Set(ctx context.Context, tenantID uuid.UUID, filter BalanceFilter, balances []Balance) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(balances)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.snapshotKey(ctx, tenantID, filter), payload, c.ttl)
}

// Invalidate drops every snapshot for the tenant.
func (c *OnHandCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Incr(ctx, c.versionKey(tenantID))
}
