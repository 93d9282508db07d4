package refreshtoken

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

type RefreshStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func (s *RefreshStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func TestRefreshStoreSuite(t *testing.T) {
	suite.Run(t, new(RefreshStoreSuite))
}

func newToken(token, userID string, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		Token:     token,
		UserID:    userID,
		ClientID:  "client-1",
		Scopes:    []string{"files:read", "files:write"},
		CreatedAt: expiresAt.Add(-7 * 24 * time.Hour),
		ExpiresAt: expiresAt,
	}
}

func (s *RefreshStoreSuite) TestConsume() {
	ctx := context.Background()
	now := time.Now()

	s.Run("live token rotates once", func() {
		store := NewInMemory()
		s.Require().NoError(store.Create(ctx, newToken("rt-1", "user-1", now.Add(time.Hour))))

		record, err := store.Consume(ctx, "rt-1", now)
		s.Require().NoError(err)
		s.True(record.Revoked)

		record, err = store.Consume(ctx, "rt-1", now)
		s.Require().ErrorIs(err, sentinel.ErrRevoked)
		s.NotNil(record) // returned for replay detection
	})

	s.Run("expired token is rejected without being deleted", func() {
		store := NewInMemory()
		s.Require().NoError(store.Create(ctx, newToken("rt-2", "user-1", now.Add(-time.Minute))))

		_, err := store.Consume(ctx, "rt-2", now)
		s.Require().ErrorIs(err, sentinel.ErrExpired)
	})

	s.Run("unknown token returns ErrNotFound", func() {
		_, err := s.store.Consume(ctx, "missing", now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RefreshStoreSuite) TestConsumeRace() {
	ctx := context.Background()
	now := time.Now()
	store := NewInMemory()
	s.Require().NoError(store.Create(ctx, newToken("contested", "user-1", now.Add(time.Hour))))

	const attempts = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Consume(ctx, "contested", now); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for range wins {
		winners++
	}
	s.Equal(1, winners)
}

func (s *RefreshStoreSuite) TestRevoke() {
	ctx := context.Background()
	now := time.Now()

	s.Run("revokes a live token once", func() {
		store := NewInMemory()
		s.Require().NoError(store.Create(ctx, newToken("rt-3", "user-1", now.Add(time.Hour))))

		revoked, err := store.Revoke(ctx, "rt-3")
		s.Require().NoError(err)
		s.True(revoked)

		revoked, err = store.Revoke(ctx, "rt-3")
		s.Require().NoError(err)
		s.False(revoked)
	})

	s.Run("unknown token is a no-op", func() {
		revoked, err := s.store.Revoke(ctx, "missing")
		s.Require().NoError(err)
		s.False(revoked)
	})
}

func (s *RefreshStoreSuite) TestRevokeAllForUser() {
	ctx := context.Background()
	now := time.Now()
	store := NewInMemory()
	s.Require().NoError(store.Create(ctx, newToken("a", "user-1", now.Add(time.Hour))))
	s.Require().NoError(store.Create(ctx, newToken("b", "user-1", now.Add(time.Hour))))
	s.Require().NoError(store.Create(ctx, newToken("c", "user-2", now.Add(time.Hour))))

	count, err := store.RevokeAllForUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(2, count)

	// Second pass finds nothing live.
	count, err = store.RevokeAllForUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(0, count)

	// user-2 untouched.
	_, err = store.Consume(ctx, "c", now)
	s.Require().NoError(err)
}
