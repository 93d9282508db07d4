// Package refreshtoken persists rotating refresh tokens. As with
// authorization codes, only the store flips the revoked flag; revoked rows
// are kept for audit and replay detection, never deleted on rotation.
package refreshtoken

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

func translateTokenError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrRefreshTokenExpired):
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrExpired)
	case errors.Is(err, models.ErrRefreshTokenRevoked):
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrRevoked)
	default:
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrInvalidState)
	}
}

// InMemoryStore keeps refresh tokens in a mutex-guarded map for tests and
// single-node dev deployments.
type InMemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

// NewInMemory constructs an empty in-memory refresh token store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{tokens: make(map[string]*models.RefreshToken)}
}

func (s *InMemoryStore) Create(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tokens[token.Token]; exists {
		return fmt.Errorf("refresh token collision: %w", sentinel.ErrConflict)
	}
	stored := *token
	s.tokens[token.Token] = &stored
	return nil
}

// Consume atomically redeems a token for rotation: validate and flip revoked
// under one lock so concurrent redeemers get exactly one winner. The record
// is returned even on failure so the caller can audit replays.
func (s *InMemoryStore) Consume(_ context.Context, token string, now time.Time) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
	}

	if err := record.ValidateForConsume(now); err != nil {
		copied := *record
		return &copied, translateTokenError(err)
	}
	record.MarkRevoked()
	copied := *record
	return &copied, nil
}

// Revoke retires a token without issuing a successor. Idempotent: revoking an
// already-revoked or unknown token reports false with no error.
func (s *InMemoryStore) Revoke(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok || record.Revoked {
		return false, nil
	}
	record.MarkRevoked()
	return true, nil
}

// RevokeAllForUser retires every live token belonging to the user and returns
// how many were affected.
func (s *InMemoryStore) RevokeAllForUser(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for _, record := range s.tokens {
		if record.UserID == userID && !record.Revoked {
			record.MarkRevoked()
			revoked++
		}
	}
	return revoked, nil
}

// DeleteExpired removes tokens dead as of now. Housekeeping only.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, record := range s.tokens {
		if record.IsExpired(now) {
			delete(s.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}
