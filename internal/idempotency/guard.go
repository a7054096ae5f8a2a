// Package idempotency keeps clients from executing the same request twice.
package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "idem:"

// Guard records request keys in Redis with a TTL. A key can be claimed
// once until it expires or is released.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGuard creates a Guard whose claims expire after ttl.
func NewGuard(client *redis.Client, ttl time.Duration) *Guard {
	return &Guard{client: client, ttl: ttl}
}

func redisKey(scope, key string) string {
	return keyPrefix + scope + ":" + key
}

// Claim reports whether this is the first use of key within scope.
func (g *Guard) Claim(ctx context.Context, scope, key string) (bool, error) {
	ok, err := g.client.SetNX(ctx, redisKey(scope, key), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

// Release forgets a claimed key so a failed request can be retried.
func (g *Guard) Release(ctx context.Context, scope, key string) error {
	if err := g.client.Del(ctx, redisKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
