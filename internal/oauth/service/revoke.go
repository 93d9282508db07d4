package service

import (
	"context"
	"fmt"

	"drivegate/internal/audit"
)

// Token type hints accepted by the revocation endpoint.
const (
	HintRefreshToken = "refresh_token"
	HintAccessToken  = "access_token"
)

// Revoke retires a refresh token. Per RFC 7009 the outcome is always reported
// as success; whether the token existed, was already revoked, or was an
// access token (not server-side revocable here) is never disclosed.
func (s *Service) Revoke(ctx context.Context, token, hint string) error {
	if token == "" || hint == HintAccessToken {
		return nil
	}
	revoked, err := s.refresh.Revoke(ctx, token)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if revoked {
		s.metrics.TokensRevoked.Inc()
		s.audit.Emit(ctx, audit.Event{Action: audit.ActionTokenRevoked})
	}
	return nil
}

// BlacklistResult is the explicit outcome of the best-effort access-token
// invalidation at logout. Callers inspect or deliberately ignore it; logout
// itself never fails because of it.
type BlacklistResult struct {
	Attempted bool
	Err       error
}

// Logout revokes the presented refresh token and best-effort blacklists the
// access token's jti for its remaining lifetime. A blacklist failure is
// tolerated: the access token would have expired on its own shortly anyway.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken, userID string) BlacklistResult {
	if refreshToken != "" {
		if _, err := s.refresh.Revoke(ctx, refreshToken); err != nil {
			s.logger.ErrorContext(ctx, "refresh token revocation at logout failed", "error", err)
		}
	}

	s.audit.Emit(ctx, audit.Event{Action: audit.ActionLogout, UserID: userID})

	if s.blacklist == nil || accessToken == "" {
		return BlacklistResult{}
	}
	claims, err := s.signer.Validate(accessToken)
	if err != nil {
		// Already invalid; nothing to blacklist.
		return BlacklistResult{}
	}
	ttl := s.signer.RemainingTTL(claims)
	if ttl <= 0 {
		return BlacklistResult{}
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, ttl); err != nil {
		s.logger.WarnContext(ctx, "access token blacklisting failed, logout proceeds",
			"error", err,
		)
		return BlacklistResult{Attempted: true, Err: err}
	}
	return BlacklistResult{Attempted: true}
}

// LogoutAll revokes every live refresh token the user holds and reports how
// many sessions that ended.
func (s *Service) LogoutAll(ctx context.Context, userID string) (int, error) {
	count, err := s.refresh.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all refresh tokens: %w", err)
	}
	if count > 0 {
		s.metrics.TokensRevoked.Add(float64(count))
	}
	s.audit.Emit(ctx, audit.Event{
		Action: audit.ActionLogout,
		UserID: userID,
		Detail: fmt.Sprintf("revoked %d sessions", count),
	})
	return count, nil
}
