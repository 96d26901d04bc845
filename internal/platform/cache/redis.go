package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// New creates a Redis client and verifies connectivity. The client is
// returned even when the ping fails so callers can start degraded and let
// Redis come up later.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("platform/cache: ping: %w", err)
	}
	return client, nil
}
