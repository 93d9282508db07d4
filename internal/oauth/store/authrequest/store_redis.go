package authrequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

const requestKeyPrefix = "oauth:authreq:"

// RedisStore is the production implementation for distributed deployments:
// Redis key TTL enforces the login/consent window, so expired requests vanish
// without any sweeper.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed request store. The client lifecycle is
// managed by the caller.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Save writes the request under its correlation ID with the remaining window
// as the key TTL. Saving an already-expired request is rejected rather than
// writing a key with no expiry.
func (s *RedisStore) Save(ctx context.Context, req *models.AuthorizationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal authorization request: %w", err)
	}
	ttl := time.Until(req.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("authorization request already expired: %w", sentinel.ErrInvalidState)
	}
	if err := s.client.Set(ctx, requestKeyPrefix+req.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("save authorization request: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, id string, now time.Time) (*models.AuthorizationRequest, error) {
	data, err := s.client.Get(ctx, requestKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("authorization request: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find authorization request: %w", err)
	}
	req := &models.AuthorizationRequest{}
	if err := json.Unmarshal(data, req); err != nil {
		return nil, fmt.Errorf("unmarshal authorization request: %w", err)
	}
	// Belt and braces: the key TTL should have removed it already.
	if req.IsExpired(now) {
		_ = s.client.Del(ctx, requestKeyPrefix+id).Err()
		return nil, fmt.Errorf("authorization request: %w", sentinel.ErrNotFound)
	}
	return req, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, requestKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete authorization request: %w", err)
	}
	return nil
}
