// Package revocation implements the best-effort access-token blacklist used
// at logout. Entries live exactly as long as the token they shadow; natural
// expiry remains the real bound on a bearer token's life.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "drivegate_token_blacklist_check_duration_ms",
	Help:    "Latency of access-token blacklist checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedKeyPrefix = "blacklist:jti:"

// RedisBlacklist shares revocation state across instances; the recommended
// implementation for any multi-node deployment.
type RedisBlacklist struct {
	client *redis.Client
}

// NewRedisBlacklist constructs a Redis-backed blacklist. The client lifecycle
// is managed externally.
func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

// Revoke records a jti until ttl elapses. Key expiry is the cleanup.
func (b *RedisBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, revokedKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether a jti was blacklisted. Absent keys (never
// revoked, or entry expired with the token) read as not revoked.
func (b *RedisBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if jti == "" {
		return false, nil
	}
	_, err := b.client.Get(ctx, revokedKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blacklist check: %w", err)
	}
	return true, nil
}
