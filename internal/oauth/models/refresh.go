package models

import (
	"errors"
	"time"
)

var (
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenRevoked = errors.New("refresh token revoked")
)

// RefreshToken is the rotating long-lived credential. Each redemption revokes
// the presented token and issues exactly one successor carrying the same
// scopes; revoked rows are kept, not deleted, for audit and replay detection.
type RefreshToken struct {
	Token     string
	UserID    string
	ClientID  string
	Scopes    []string
	Revoked   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired uses the same exclusive boundary as authorization codes.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// ValidateForConsume checks lifecycle preconditions for rotation.
func (t *RefreshToken) ValidateForConsume(now time.Time) error {
	if t.Revoked {
		return ErrRefreshTokenRevoked
	}
	if t.IsExpired(now) {
		return ErrRefreshTokenExpired
	}
	return nil
}

// MarkRevoked retires the token. Irreversible.
func (t *RefreshToken) MarkRevoked() {
	t.Revoked = true
}
