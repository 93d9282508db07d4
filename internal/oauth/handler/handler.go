// Package handler exposes the authorization server over HTTP. Handlers parse
// and render the wire format; all protocol decisions live in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"drivegate/internal/oauth/models"
	"drivegate/internal/oauth/service"
	"drivegate/internal/platform/metrics"
	"drivegate/internal/platform/middleware"
)

// OAuthService defines the orchestrator operations the transport needs.
type OAuthService interface {
	Authorize(ctx context.Context, req service.AuthorizeRequest) (*service.AuthorizeResult, error)
	Resume(ctx context.Context, requestID, userID string) (*service.AuthorizeResult, error)
	Consent(ctx context.Context, requestID, userID string, approved bool) (*service.AuthorizeResult, error)
	Token(ctx context.Context, req *models.TokenRequest, userAgent string) (*models.TokenResult, error)
	Revoke(ctx context.Context, token, hint string) error
	Logout(ctx context.Context, accessToken, refreshToken, userID string) service.BlacklistResult
	LogoutAll(ctx context.Context, userID string) (int, error)
}

// Handler wires the OAuth endpoints to the service.
type Handler struct {
	service OAuthService
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs the OAuth handler with its dependencies.
func New(svc OAuthService, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service: svc,
		logger:  logger,
		metrics: m,
	}
}

// Register mounts the endpoints. requireAuth guards the session-management
// routes; the protocol endpoints authenticate by other means (client
// credentials, codes, tokens) and stay open.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/oauth/authorize", h.HandleAuthorize)
	r.Post("/oauth/resume", h.HandleResume)
	r.Post("/oauth/consent", h.HandleConsent)
	r.Post("/oauth/token", h.HandleToken)
	r.Post("/oauth/revoke", h.HandleRevoke)

	r.Group(func(g chi.Router) {
		g.Use(requireAuth)
		g.Post("/auth/logout", h.HandleLogout)
		g.Post("/auth/logout-all", h.HandleLogoutAll)
	})
}

// HandleAuthorize handles GET /oauth/authorize. The response is a 302 to
// login, consent, or the client; failures that cannot ride a trusted redirect
// render as a non-redirecting 400.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	result, err := h.service.Authorize(ctx, service.AuthorizeRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		State:               q.Get("state"),
		Scope:               q.Get("scope"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		UserID:              middleware.GetUserID(ctx),
	})
	h.renderAuthorize(w, r, result, err)
}

type resumeRequest struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
}

// HandleResume handles POST /oauth/resume, called by the session layer once
// the user has authenticated. Not exposed to browsers directly.
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	result, err := h.service.Resume(r.Context(), req.RequestID, req.UserID)
	h.renderAuthorize(w, r, result, err)
}

type consentRequest struct {
	RequestID string `json:"request_id"`
	UserID    string `json:"user_id"`
	Decision  string `json:"decision"`
}

// HandleConsent handles POST /oauth/consent with decision approve or deny.
func (h *Handler) HandleConsent(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	switch req.Decision {
	case "approve", "deny":
	default:
		writeOAuthError(w, http.StatusBadRequest, models.InvalidRequest("decision must be approve or deny"))
		return
	}
	result, err := h.service.Consent(r.Context(), req.RequestID, req.UserID, req.Decision == "approve")
	h.renderAuthorize(w, r, result, err)
}

// HandleToken handles POST /oauth/token for both grants, accepting form or
// JSON bodies.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	defer h.metrics.ObserveTokenLatency(start)

	req, ok := h.parseTokenRequest(w, r)
	if !ok {
		return
	}

	result, err := h.service.Token(ctx, req, r.UserAgent())
	if err != nil {
		var oerr *models.OAuthError
		if asOAuthError(err, &oerr) {
			h.logger.WarnContext(ctx, "token grant rejected",
				"request_id", middleware.GetRequestID(ctx),
				"grant_type", req.GrantType,
				"client_id", req.ClientID,
				"error", oerr.Code,
			)
			w.Header().Set("Cache-Control", "no-store")
			writeOAuthError(w, http.StatusBadRequest, oerr)
			return
		}
		h.logger.ErrorContext(ctx, "token grant failed",
			"request_id", middleware.GetRequestID(ctx),
			"grant_type", req.GrantType,
			"error", err,
		)
		writeServerError(w)
		return
	}

	h.logger.InfoContext(ctx, "tokens issued",
		"request_id", middleware.GetRequestID(ctx),
		"grant_type", req.GrantType,
		"client_id", req.ClientID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, result)
}

// HandleRevoke handles POST /oauth/revoke. The answer is 200 regardless of
// what the token was; token validity is never disclosed here.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var token, hint string
	if isJSON(r) {
		var body struct {
			Token         string `json:"token"`
			TokenTypeHint string `json:"token_type_hint"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			token, hint = body.Token, body.TokenTypeHint
		}
	} else if err := r.ParseForm(); err == nil {
		token = r.PostFormValue("token")
		hint = r.PostFormValue("token_type_hint")
	}

	if err := h.service.Revoke(ctx, token, hint); err != nil {
		// Infrastructure failure; the contract still demands success on the
		// wire, so log and answer as if revoked.
		h.logger.ErrorContext(ctx, "revocation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleLogout handles POST /auth/logout. The access token's jti is
// blacklisted best-effort; a blacklist failure never fails the logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middleware.GetClaims(ctx)

	var req logoutRequest
	if r.ContentLength > 0 {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	outcome := h.service.Logout(ctx, claims.RawToken, req.RefreshToken, claims.UserID)
	if outcome.Err != nil {
		h.logger.WarnContext(ctx, "logout token invalidation incomplete",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", claims.UserID,
			"error", outcome.Err,
		)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

// HandleLogoutAll handles POST /auth/logout-all: every refresh token the user
// holds is revoked.
func (h *Handler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := middleware.GetClaims(ctx)

	count, err := h.service.LogoutAll(ctx, claims.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "logout-all failed",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", claims.UserID,
			"error", err,
		)
		writeServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":          "Logged out from all sessions",
		"sessions_revoked": count,
	})
}

// renderAuthorize turns an AuthorizeResult into a 302, and a protocol error
// into a non-redirecting 400.
func (h *Handler) renderAuthorize(w http.ResponseWriter, r *http.Request, result *service.AuthorizeResult, err error) {
	if err != nil {
		var oerr *models.OAuthError
		if asOAuthError(err, &oerr) {
			writeOAuthError(w, http.StatusBadRequest, oerr)
			return
		}
		h.logger.ErrorContext(r.Context(), "authorization failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		writeServerError(w)
		return
	}
	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// parseTokenRequest reads the token request from either a form or JSON body.
func (h *Handler) parseTokenRequest(w http.ResponseWriter, r *http.Request) (*models.TokenRequest, bool) {
	if isJSON(r) {
		var req models.TokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeOAuthError(w, http.StatusBadRequest, models.InvalidRequest("malformed request body"))
			return nil, false
		}
		return &req, true
	}

	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, models.InvalidRequest("malformed request body"))
		return nil, false
	}
	return &models.TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
		Code:         r.PostFormValue("code"),
		CodeVerifier: r.PostFormValue("code_verifier"),
		RedirectURI:  r.PostFormValue("redirect_uri"),
		RefreshToken: r.PostFormValue("refresh_token"),
	}, true
}

func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			writeOAuthError(w, http.StatusBadRequest, models.InvalidRequest("malformed request body"))
			return false
		}
		return true
	}
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, models.InvalidRequest("malformed request body"))
		return false
	}
	switch v := dst.(type) {
	case *resumeRequest:
		v.RequestID = r.PostFormValue("request_id")
		v.UserID = r.PostFormValue("user_id")
	case *consentRequest:
		v.RequestID = r.PostFormValue("request_id")
		v.UserID = r.PostFormValue("user_id")
		v.Decision = r.PostFormValue("decision")
	}
	return true
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
