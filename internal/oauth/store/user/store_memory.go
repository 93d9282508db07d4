// Package user is the boundary to the external user directory. The core only
// needs identity lookup and the active flag; everything else stays outside.
package user

import (
	"context"
	"fmt"
	"sync"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

// InMemoryStore keeps user records in memory for tests and dev.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

// NewInMemory constructs an empty in-memory user store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]*models.User)}
}

func (s *InMemoryStore) Put(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
	}
	copied := *record
	return &copied, nil
}
