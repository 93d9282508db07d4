package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"drivegate/internal/audit"
	"drivegate/internal/oauth/models"
	"drivegate/internal/oauth/pkce"
	"drivegate/internal/oauth/registry"
	"drivegate/pkg/platform/sentinel"
)

// AuthorizeRequest is the parsed query of GET /oauth/authorize.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	State               string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string

	// UserID is set when the session layer already authenticated the caller;
	// empty means the flow starts with a login redirect.
	UserID string
}

// RedirectKind distinguishes where an AuthorizeResult sends the browser.
type RedirectKind string

const (
	RedirectLogin   RedirectKind = "login"
	RedirectConsent RedirectKind = "consent"
	RedirectClient  RedirectKind = "client"
)

// AuthorizeResult is a 302 target. Failures that may not be carried on a
// redirect (untrusted redirect URI, unknown client, dead request) come back
// as a *models.OAuthError from the method instead; the transport renders
// those as a non-redirecting 400.
type AuthorizeResult struct {
	Kind        RedirectKind
	RedirectURL string

	// RequestID correlates the login/consent round trip.
	RequestID string
}

// Authorize starts the authorization flow. The redirect URI is established as
// trustworthy before anything else; every failure after that point rides back
// to the client as redirect parameters, every failure before it is a hard
// error.
func (s *Service) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	ctx, span := s.tracer.Start(ctx, "oauth.authorize")
	defer span.End()

	if req.ClientID == "" {
		return nil, models.InvalidRequest("client_id is required")
	}
	if req.RedirectURI == "" {
		return nil, models.InvalidRequest("redirect_uri is required")
	}

	client, err := s.registry.Validate(ctx, req.ClientID, req.RedirectURI)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrUnknownClient):
			return nil, models.InvalidClient()
		case errors.Is(err, registry.ErrRedirectMismatch):
			return nil, models.InvalidRequest("redirect_uri is not registered for this client")
		default:
			return nil, fmt.Errorf("validate client: %w", err)
		}
	}

	// Redirect URI is trusted from here on.
	if req.ResponseType != "code" {
		return s.errorRedirect(req.RedirectURI, req.State, models.InvalidRequest("response_type must be code")), nil
	}
	if req.CodeChallenge != "" && req.CodeChallengeMethod != "" && !pkce.ValidMethod(req.CodeChallengeMethod) {
		return s.errorRedirect(req.RedirectURI, req.State, models.InvalidRequest("code_challenge_method must be S256 or plain")), nil
	}
	if err := s.registry.RequirePKCEIfPublic(client, req.CodeChallenge != ""); err != nil {
		return s.errorRedirect(req.RedirectURI, req.State, models.InvalidRequest("code_challenge is required for this client")), nil
	}

	method := req.CodeChallengeMethod
	if req.CodeChallenge != "" && method == "" {
		method = pkce.MethodS256
	}

	now := s.clock()
	pending := &models.AuthorizationRequest{
		ID:                  uuid.NewString(),
		ClientID:            client.ClientID,
		RedirectURI:         req.RedirectURI,
		State:               req.State,
		Scopes:              s.registry.NarrowScopes(req.Scope, client),
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: method,
		Status:              models.AuthRequestPendingAuthentication,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.cfg.AuthRequestTTL),
	}
	if err := s.requests.Save(ctx, pending); err != nil {
		return nil, fmt.Errorf("save authorization request: %w", err)
	}

	if req.UserID == "" {
		return &AuthorizeResult{
			Kind:        RedirectLogin,
			RedirectURL: buildRedirect(s.cfg.LoginURL, url.Values{"request_id": {pending.ID}}),
			RequestID:   pending.ID,
		}, nil
	}
	return s.Resume(ctx, pending.ID, req.UserID)
}

// Resume continues a pending request once the session layer has authenticated
// the user. First-party clients skip consent and go straight to a code;
// everyone else is sent to the consent screen.
func (s *Service) Resume(ctx context.Context, requestID, userID string) (*AuthorizeResult, error) {
	ctx, span := s.tracer.Start(ctx, "oauth.resume")
	defer span.End()

	pending, err := s.findPending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if pending.Status != models.AuthRequestPendingAuthentication {
		return nil, models.InvalidRequest("authorization request is not awaiting authentication")
	}

	// Re-validate the registration; it may have changed since /authorize.
	client, err := s.registry.Validate(ctx, pending.ClientID, pending.RedirectURI)
	if err != nil {
		_ = s.requests.Delete(ctx, pending.ID)
		return nil, models.InvalidRequest("authorization request is no longer valid")
	}

	usr, err := s.users.FindByID(ctx, userID)
	if err != nil || !usr.Active {
		_ = s.requests.Delete(ctx, pending.ID)
		return s.errorRedirect(pending.RedirectURI, pending.State, models.AccessDenied()), nil
	}

	pending.UserID = userID
	if client.IsFirstParty {
		return s.issueCode(ctx, pending)
	}

	pending.Status = models.AuthRequestPendingConsent
	if err := s.requests.Save(ctx, pending); err != nil {
		return nil, fmt.Errorf("save authorization request: %w", err)
	}
	return &AuthorizeResult{
		Kind:        RedirectConsent,
		RedirectURL: buildRedirect(s.cfg.ConsentURL, url.Values{"request_id": {pending.ID}}),
		RequestID:   pending.ID,
	}, nil
}

// Consent records the user's decision. Approval issues the code; denial tears
// the request down and carries access_denied back to the client with the
// original state.
func (s *Service) Consent(ctx context.Context, requestID, userID string, approved bool) (*AuthorizeResult, error) {
	ctx, span := s.tracer.Start(ctx, "oauth.consent")
	defer span.End()

	pending, err := s.findPending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if pending.Status != models.AuthRequestPendingConsent || pending.UserID != userID {
		return nil, models.InvalidRequest("authorization request is not awaiting consent")
	}

	if !approved {
		_ = s.requests.Delete(ctx, pending.ID)
		s.metrics.ConsentDecisions.WithLabelValues("deny").Inc()
		s.audit.Emit(ctx, audit.Event{
			Action:   audit.ActionConsentDenied,
			UserID:   pending.UserID,
			ClientID: pending.ClientID,
			Scopes:   pending.Scopes,
		})
		return s.errorRedirect(pending.RedirectURI, pending.State, models.AccessDenied()), nil
	}

	s.metrics.ConsentDecisions.WithLabelValues("approve").Inc()
	return s.issueCode(ctx, pending)
}

func (s *Service) findPending(ctx context.Context, requestID string) (*models.AuthorizationRequest, error) {
	if requestID == "" {
		return nil, models.InvalidRequest("request_id is required")
	}
	pending, err := s.requests.Find(ctx, requestID, s.clock())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.InvalidRequest("authorization request not found or expired")
		}
		return nil, fmt.Errorf("find authorization request: %w", err)
	}
	return pending, nil
}

// errorRedirect carries an OAuth error back to an already-validated redirect
// URI, preserving state.
func (s *Service) errorRedirect(redirectURI, state string, oerr *models.OAuthError) *AuthorizeResult {
	params := url.Values{
		"error":             {oerr.Code},
		"error_description": {oerr.Description},
	}
	if state != "" {
		params.Set("state", state)
	}
	return &AuthorizeResult{
		Kind:        RedirectClient,
		RedirectURL: buildRedirect(redirectURI, params),
	}
}
