package models

import (
	"errors"
	"time"
)

// Validation failures surfaced by ValidateForConsume. Stores translate these
// into sentinel errors at their boundary.
var (
	ErrCodeExpired          = errors.New("authorization code expired")
	ErrCodeRevoked          = errors.New("authorization code already used")
	ErrCodeRedirectMismatch = errors.New("redirect_uri mismatch")
)

// AuthorizationCode is the single-use credential minted when authorization is
// granted and exchanged exactly once at the token endpoint.
//
// Invariants:
//   - Revoked never flips back to false
//   - ExpiresAt is immutable after creation (60s window, exclusive boundary)
//   - bound to exactly one (user, client, redirect_uri, pkce) tuple, checked
//     byte-for-byte at redemption
type AuthorizationCode struct {
	Code                string
	UserID              string
	ClientID            string
	Scopes              []string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Revoked             bool
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// IsExpired treats ExpiresAt as exclusive: a code presented at exactly its
// expiry instant is already dead.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// ValidateForConsume checks the state preconditions for redemption. Binding
// checks against the requesting client and PKCE verifier live in the service
// layer; this covers the record's own lifecycle.
func (c *AuthorizationCode) ValidateForConsume(now time.Time) error {
	if c.Revoked {
		return ErrCodeRevoked
	}
	if c.IsExpired(now) {
		return ErrCodeExpired
	}
	return nil
}

// MarkRevoked consumes the code. Irreversible.
func (c *AuthorizationCode) MarkRevoked() {
	c.Revoked = true
}
