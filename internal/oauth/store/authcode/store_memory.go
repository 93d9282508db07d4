// Package authcode persists single-use authorization codes. Store
// implementations own the revoked flag: nothing outside this package may flip
// it, which is what makes the single-use guarantee enforceable.
package authcode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

// translateCodeError converts domain validation errors into sentinel errors
// per the store boundary contract.
func translateCodeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrCodeExpired):
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrExpired)
	case errors.Is(err, models.ErrCodeRevoked):
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrRevoked)
	default:
		return fmt.Errorf("%s: %w", err.Error(), sentinel.ErrInvalidState)
	}
}

// InMemoryStore keeps authorization codes in a mutex-guarded map for tests
// and single-node dev deployments.
type InMemoryStore struct {
	mu    sync.Mutex
	codes map[string]*models.AuthorizationCode
}

// NewInMemory constructs an empty in-memory authorization code store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{codes: make(map[string]*models.AuthorizationCode)}
}

func (s *InMemoryStore) Create(_ context.Context, code *models.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[code.Code]; exists {
		return fmt.Errorf("authorization code collision: %w", sentinel.ErrConflict)
	}
	stored := *code
	s.codes[code.Code] = &stored
	return nil
}

// Consume atomically redeems a code: the revoked flag is inspected and
// flipped under the same lock, so two racing redeemers get exactly one
// winner. A found-but-invalid code is burned regardless of which validation
// failed, and a copy of the record is returned alongside the error so the
// caller can audit replay attempts.
func (s *InMemoryStore) Consume(_ context.Context, code string, now time.Time) (*models.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("authorization code: %w", sentinel.ErrNotFound)
	}

	err := record.ValidateForConsume(now)
	record.MarkRevoked()
	copied := *record
	if err != nil {
		return &copied, translateCodeError(err)
	}
	return &copied, nil
}

// DeleteExpired removes codes dead as of now. Housekeeping only; expired rows
// are already inert at validation.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for code, record := range s.codes {
		if record.IsExpired(now) {
			delete(s.codes, code)
			deleted++
		}
	}
	return deleted, nil
}
