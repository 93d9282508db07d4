package service

import (
	"context"
	"errors"
	"fmt"

	"drivegate/internal/audit"
	"drivegate/internal/oauth/models"
	"drivegate/internal/oauth/pkce"
	"drivegate/internal/oauth/registry"
	"drivegate/pkg/platform/sentinel"
)

// Token dispatches a token-endpoint request to the matching grant. Protocol
// failures come back as *models.OAuthError for the transport to render as a
// 400 body; anything else is an internal error.
func (s *Service) Token(ctx context.Context, req *models.TokenRequest, userAgent string) (*models.TokenResult, error) {
	ctx, span := s.tracer.Start(ctx, "oauth.token")
	defer span.End()

	req.Normalize()
	if oerr := req.Validate(); oerr != nil {
		return nil, s.grantFailed(oerr)
	}

	client, err := s.registry.Find(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownClient) {
			return nil, s.grantFailed(models.InvalidClient())
		}
		return nil, fmt.Errorf("resolve client: %w", err)
	}
	if err := s.registry.VerifySecret(client, req.ClientSecret); err != nil {
		return nil, s.grantFailed(models.InvalidClient())
	}

	switch models.GrantType(req.GrantType) {
	case models.GrantAuthorizationCode:
		return s.exchangeAuthorizationCode(ctx, req, client, userAgent)
	case models.GrantRefreshToken:
		return s.exchangeRefreshToken(ctx, req, client, userAgent)
	default:
		return nil, s.grantFailed(models.UnsupportedGrantType())
	}
}

// exchangeAuthorizationCode redeems a code for the first token pair. The code
// is consumed before any binding check runs, so a failed attempt burns it;
// validation order is significant for error precedence.
func (s *Service) exchangeAuthorizationCode(ctx context.Context, req *models.TokenRequest, client *models.Client, userAgent string) (*models.TokenResult, error) {
	code, err := s.codes.Consume(ctx, req.Code, s.clock())
	if err != nil {
		if errors.Is(err, sentinel.ErrRevoked) && code != nil {
			s.audit.Emit(ctx, audit.Event{
				Action:   audit.ActionCodeReplayed,
				UserID:   code.UserID,
				ClientID: client.ClientID,
				Device:   audit.DeviceSummary(userAgent),
			})
		}
		if isGrantRejection(err) {
			return nil, s.grantFailed(models.InvalidGrant())
		}
		return nil, fmt.Errorf("consume authorization code: %w", err)
	}

	if code.ClientID != client.ClientID {
		return nil, s.grantFailed(models.InvalidClient())
	}
	if code.RedirectURI != req.RedirectURI {
		return nil, s.grantFailed(models.InvalidGrant())
	}
	if code.CodeChallenge != "" {
		if req.CodeVerifier == "" {
			return nil, s.grantFailed(models.InvalidGrant())
		}
		if !pkce.Verify(req.CodeVerifier, code.CodeChallenge, code.CodeChallengeMethod) {
			return nil, s.grantFailed(models.InvalidGrant())
		}
	}
	usr, err := s.users.FindByID(ctx, code.UserID)
	if err != nil || !usr.Active {
		return nil, s.grantFailed(models.InvalidGrant())
	}

	result, err := s.issuePair(ctx, code.UserID, client.ClientID, code.Scopes)
	if err != nil {
		return nil, err
	}

	s.metrics.TokensIssued.WithLabelValues(string(models.GrantAuthorizationCode)).Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:   audit.ActionTokenIssued,
		UserID:   code.UserID,
		ClientID: client.ClientID,
		Scopes:   code.Scopes,
		Device:   audit.DeviceSummary(userAgent),
	})
	return result, nil
}

// exchangeRefreshToken rotates the presented token: the old one is revoked by
// the atomic consume before the successor exists, so a crash mid-sequence
// strands the session rather than leaving two live tokens.
func (s *Service) exchangeRefreshToken(ctx context.Context, req *models.TokenRequest, client *models.Client, userAgent string) (*models.TokenResult, error) {
	record, err := s.refresh.Consume(ctx, req.RefreshToken, s.clock())
	if err != nil {
		if errors.Is(err, sentinel.ErrRevoked) && record != nil {
			s.audit.Emit(ctx, audit.Event{
				Action:   audit.ActionTokenReplayed,
				UserID:   record.UserID,
				ClientID: client.ClientID,
				Device:   audit.DeviceSummary(userAgent),
			})
		}
		if isGrantRejection(err) {
			return nil, s.grantFailed(models.InvalidGrant())
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}

	if record.ClientID != client.ClientID {
		return nil, s.grantFailed(models.InvalidClient())
	}
	usr, err := s.users.FindByID(ctx, record.UserID)
	if err != nil || !usr.Active {
		return nil, s.grantFailed(models.InvalidGrant())
	}

	// Scopes carry forward from the parent token, never escalated.
	result, err := s.issuePair(ctx, record.UserID, client.ClientID, record.Scopes)
	if err != nil {
		return nil, err
	}

	s.metrics.TokensIssued.WithLabelValues(string(models.GrantRefreshToken)).Inc()
	s.audit.Emit(ctx, audit.Event{
		Action:   audit.ActionTokenRefreshed,
		UserID:   record.UserID,
		ClientID: client.ClientID,
		Scopes:   record.Scopes,
		Device:   audit.DeviceSummary(userAgent),
	})
	return result, nil
}

// isGrantRejection separates "this credential is no good" from real
// infrastructure failures. The former all collapse to one opaque
// invalid_grant on the wire.
func isGrantRejection(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) ||
		errors.Is(err, sentinel.ErrExpired) ||
		errors.Is(err, sentinel.ErrRevoked) ||
		errors.Is(err, sentinel.ErrInvalidState)
}

func (s *Service) grantFailed(oerr *models.OAuthError) *models.OAuthError {
	s.metrics.GrantFailures.WithLabelValues(oerr.Code).Inc()
	return oerr
}
