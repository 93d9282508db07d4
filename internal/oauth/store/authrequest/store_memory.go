// Package authrequest holds the in-flight authorization request between
// /authorize and code issuance. Requests are addressed by correlation ID and
// carry a TTL bounding the user's login/consent window; terminal requests are
// deleted, never archived.
package authrequest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

// InMemoryStore keeps pending requests in a mutex-guarded map.
type InMemoryStore struct {
	mu       sync.Mutex
	requests map[string]*models.AuthorizationRequest
}

// NewInMemory constructs an empty in-memory request store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{requests: make(map[string]*models.AuthorizationRequest)}
}

func (s *InMemoryStore) Save(_ context.Context, req *models.AuthorizationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *req
	s.requests[req.ID] = &stored
	return nil
}

// Find returns a pending request. Expired requests read as absent; the lazy
// delete keeps memory behavior aligned with the Redis TTL implementation.
func (s *InMemoryStore) Find(_ context.Context, id string, now time.Time) (*models.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("authorization request: %w", sentinel.ErrNotFound)
	}
	if record.IsExpired(now) {
		delete(s.requests, id)
		return nil, fmt.Errorf("authorization request: %w", sentinel.ErrNotFound)
	}
	copied := *record
	return &copied, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, id)
	return nil
}
