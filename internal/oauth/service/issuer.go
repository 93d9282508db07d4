package service

import (
	"context"
	"fmt"
	"net/url"

	"drivegate/internal/audit"
	"drivegate/internal/oauth/models"
	"drivegate/internal/oauth/scope"
	"drivegate/pkg/platform/random"
)

// issueCode mints the single-use authorization code for a fully authorized
// request, tears the in-flight request down, and builds the client redirect.
func (s *Service) issueCode(ctx context.Context, pending *models.AuthorizationRequest) (*AuthorizeResult, error) {
	now := s.clock()
	code := &models.AuthorizationCode{
		Code:                random.Token(),
		UserID:              pending.UserID,
		ClientID:            pending.ClientID,
		Scopes:              pending.Scopes,
		RedirectURI:         pending.RedirectURI,
		CodeChallenge:       pending.CodeChallenge,
		CodeChallengeMethod: pending.CodeChallengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.cfg.AuthCodeTTL),
	}
	if err := s.codes.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("persist authorization code: %w", err)
	}
	_ = s.requests.Delete(ctx, pending.ID)

	s.metrics.CodesIssued.Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:   audit.ActionCodeIssued,
		UserID:   pending.UserID,
		ClientID: pending.ClientID,
		Scopes:   pending.Scopes,
	})

	params := url.Values{"code": {code.Code}}
	if pending.State != "" {
		params.Set("state", pending.State)
	}
	return &AuthorizeResult{
		Kind:        RedirectClient,
		RedirectURL: buildRedirect(pending.RedirectURI, params),
	}, nil
}

// issuePair mints the access/refresh token pair ending both grant paths. The
// access token is a stateless signed credential; the refresh token is a fresh
// opaque identifier persisted with the carried-forward scopes.
func (s *Service) issuePair(ctx context.Context, userID, clientID string, scopes []string) (*models.TokenResult, error) {
	access, _, err := s.signer.Sign(userID, scopes, clientID, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	now := s.clock()
	refresh := &models.RefreshToken{
		Token:     random.Token(),
		UserID:    userID,
		ClientID:  clientID,
		Scopes:    scopes,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}
	if err := s.refresh.Create(ctx, refresh); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}

	return &models.TokenResult{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenTTL.Seconds()),
		Scope:        scope.Join(scopes),
	}, nil
}
