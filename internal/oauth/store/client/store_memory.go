// Package client provides read-only access to registered OAuth clients.
// Registration CRUD lives in the admin surface; this core only looks up.
package client

import (
	"context"
	"fmt"
	"sync"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

// InMemoryStore keeps client registrations in memory for tests and dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	clients map[string]*models.Client // keyed by public client_id
}

// NewInMemory constructs an empty in-memory client store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{clients: make(map[string]*models.Client)}
}

// Put registers or replaces a client. Used by seeding and tests only.
func (s *InMemoryStore) Put(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *client
	s.clients[client.ClientID] = &stored
	return nil
}

func (s *InMemoryStore) FindByClientID(_ context.Context, clientID string) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("client: %w", sentinel.ErrNotFound)
	}
	copied := *record
	return &copied, nil
}
