package service

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"drivegate/internal/audit"
	"drivegate/internal/jwttoken"
	"drivegate/internal/oauth/models"
	"drivegate/internal/oauth/pkce"
	"drivegate/internal/oauth/registry"
	"drivegate/internal/oauth/store/authcode"
	"drivegate/internal/oauth/store/authrequest"
	clientstore "drivegate/internal/oauth/store/client"
	"drivegate/internal/oauth/store/refreshtoken"
	"drivegate/internal/oauth/store/revocation"
	userstore "drivegate/internal/oauth/store/user"
	"drivegate/internal/platform/metrics"
)

// Prometheus instruments register on the default registry; one set per test
// binary.
var testMetrics = metrics.New()

// eventRecorder captures audit events synchronously for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *eventRecorder) Emit(_ context.Context, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) byAction(action string) []audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []audit.Event
	for _, e := range r.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type ServiceSuite struct {
	suite.Suite

	svc       *Service
	codes     *authcode.InMemoryStore
	refresh   *refreshtoken.InMemoryStore
	requests  *authrequest.InMemoryStore
	users     *userstore.InMemoryStore
	recorder  *eventRecorder
	blacklist *revocation.MemoryBlacklist
	signer    *jwttoken.Service

	now time.Time
}

const (
	firstPartyID   = "drive-web"
	thirdPartyID   = "partner-sync"
	thirdPartyCB   = "https://partner.test/cb"
	partnerSecret  = "partner-secret"
	activeUserID   = "user-1"
	inactiveUserID = "user-2"
)

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	s.codes = authcode.NewInMemory()
	s.refresh = refreshtoken.NewInMemory()
	s.requests = authrequest.NewInMemory()
	s.users = userstore.NewInMemory()
	s.recorder = &eventRecorder{}
	s.blacklist = revocation.NewMemoryBlacklist()
	s.signer = jwttoken.New("test-signing-key", "drivegate-test", jwttoken.WithClock(clock))

	clients := clientstore.NewInMemory()
	s.Require().NoError(clients.Put(context.Background(), &models.Client{
		ID:           "c1",
		Name:         "Drive Web",
		ClientID:     firstPartyID,
		Scopes:       []string{"*"},
		IsFirstParty: true,
		IsPublic:     true,
	}))
	hash, err := bcrypt.GenerateFromPassword([]byte(partnerSecret), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(clients.Put(context.Background(), &models.Client{
		ID:               "c2",
		Name:             "Partner Sync",
		ClientID:         thirdPartyID,
		ClientSecretHash: string(hash),
		RedirectURIs:     []string{thirdPartyCB},
		Scopes:           []string{"files:read", "files:write"},
	}))

	s.Require().NoError(s.users.Put(context.Background(), &models.User{ID: activeUserID, Email: "ada@example.test", Active: true}))
	s.Require().NoError(s.users.Put(context.Background(), &models.User{ID: inactiveUserID, Email: "off@example.test", Active: false}))

	s.svc = New(Deps{
		Codes:    s.codes,
		Refresh:  s.refresh,
		Requests: s.requests,
		Users:    s.users,
		Registry: registry.New(clients),
		Signer:   s.signer,
		Audit:    s.recorder,
		Metrics:  testMetrics,
		Logger:   slog.New(slog.DiscardHandler),
	}, Config{
		AccessTokenTTL:  time.Hour,
		AuthCodeTTL:     60 * time.Second,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		AuthRequestTTL:  10 * time.Minute,
		LoginURL:        "/login",
		ConsentURL:      "/oauth/consent",
	}, WithClock(clock), WithBlacklist(s.blacklist))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

// query parses the query parameters of a redirect target.
func (s *ServiceSuite) query(redirectURL string) url.Values {
	u, err := url.Parse(redirectURL)
	s.Require().NoError(err)
	return u.Query()
}

// authorizeFirstParty runs the happy authorize path for the first-party
// client and returns the issued code.
func (s *ServiceSuite) authorizeFirstParty(verifier string) string {
	result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
		ClientID:            firstPartyID,
		RedirectURI:         "app://callback",
		ResponseType:        "code",
		State:               "xyz",
		Scope:               "files:read files:write",
		CodeChallenge:       pkce.ChallengeFrom(verifier, pkce.MethodS256),
		CodeChallengeMethod: pkce.MethodS256,
		UserID:              activeUserID,
	})
	s.Require().NoError(err)
	s.Require().Equal(RedirectClient, result.Kind)
	q := s.query(result.RedirectURL)
	s.Require().NotEmpty(q.Get("code"))
	s.Require().Equal("xyz", q.Get("state"))
	return q.Get("code")
}

func (s *ServiceSuite) exchange(req *models.TokenRequest) (*models.TokenResult, error) {
	return s.svc.Token(context.Background(), req, "")
}

func (s *ServiceSuite) TestAuthorize() {
	s.Run("unknown client never reaches the redirect", func() {
		_, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     "no-such-client",
			RedirectURI:  "https://evil.test/cb",
			ResponseType: "code",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidClient, oerr.Code)
	})

	s.Run("unregistered redirect URI is a hard error, not a redirect", func() {
		_, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     thirdPartyID,
			RedirectURI:  "https://evil.test/cb",
			ResponseType: "code",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidRequest, oerr.Code)
	})

	s.Run("wrong response_type rides back on the validated redirect", func() {
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     thirdPartyID,
			RedirectURI:  thirdPartyCB,
			ResponseType: "token",
			State:        "abc",
		})
		s.Require().NoError(err)
		q := s.query(result.RedirectURL)
		s.Equal(models.ErrorInvalidRequest, q.Get("error"))
		s.Equal("abc", q.Get("state"))
	})

	s.Run("public client without a code challenge is rejected", func() {
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     firstPartyID,
			RedirectURI:  "app://callback",
			ResponseType: "code",
		})
		s.Require().NoError(err)
		s.Equal(models.ErrorInvalidRequest, s.query(result.RedirectURL).Get("error"))
	})

	s.Run("unauthenticated flow redirects to login with a request id", func() {
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:            firstPartyID,
			RedirectURI:         "app://callback",
			ResponseType:        "code",
			CodeChallenge:       pkce.ChallengeFrom("v", pkce.MethodS256),
			CodeChallengeMethod: pkce.MethodS256,
		})
		s.Require().NoError(err)
		s.Equal(RedirectLogin, result.Kind)
		s.NotEmpty(result.RequestID)
		s.Equal(result.RequestID, s.query(result.RedirectURL).Get("request_id"))
	})

	s.Run("first-party client skips consent", func() {
		code := s.authorizeFirstParty("first-party-verifier")
		s.NotEmpty(code)
	})

	s.Run("third-party client is sent to consent", func() {
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     thirdPartyID,
			RedirectURI:  thirdPartyCB,
			ResponseType: "code",
			Scope:        "files:read",
			UserID:       activeUserID,
		})
		s.Require().NoError(err)
		s.Equal(RedirectConsent, result.Kind)
	})

	s.Run("inactive user is denied on the validated redirect", func() {
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     thirdPartyID,
			RedirectURI:  thirdPartyCB,
			ResponseType: "code",
			State:        "s1",
			UserID:       inactiveUserID,
		})
		s.Require().NoError(err)
		q := s.query(result.RedirectURL)
		s.Equal(models.ErrorAccessDenied, q.Get("error"))
		s.Equal("s1", q.Get("state"))
	})

	s.Run("expired in-flight request reads as absent", func() {
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     thirdPartyID,
			RedirectURI:  thirdPartyCB,
			ResponseType: "code",
		})
		s.Require().NoError(err)
		s.Require().Equal(RedirectLogin, result.Kind)

		s.now = s.now.Add(10 * time.Minute)
		_, err = s.svc.Resume(context.Background(), result.RequestID, activeUserID)
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidRequest, oerr.Code)
	})
}

func (s *ServiceSuite) TestConsent() {
	startConsent := func() string {
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     thirdPartyID,
			RedirectURI:  thirdPartyCB,
			ResponseType: "code",
			State:        "st",
			Scope:        "files:read",
			UserID:       activeUserID,
		})
		s.Require().NoError(err)
		s.Require().Equal(RedirectConsent, result.Kind)
		return result.RequestID
	}

	s.Run("approval issues a code on the registered redirect", func() {
		requestID := startConsent()
		result, err := s.svc.Consent(context.Background(), requestID, activeUserID, true)
		s.Require().NoError(err)
		q := s.query(result.RedirectURL)
		s.NotEmpty(q.Get("code"))
		s.Equal("st", q.Get("state"))
		s.True(strings.HasPrefix(result.RedirectURL, thirdPartyCB))
	})

	s.Run("denial carries access_denied with the original state", func() {
		requestID := startConsent()
		result, err := s.svc.Consent(context.Background(), requestID, activeUserID, false)
		s.Require().NoError(err)
		q := s.query(result.RedirectURL)
		s.Equal(models.ErrorAccessDenied, q.Get("error"))
		s.Equal("st", q.Get("state"))
		s.NotEmpty(s.recorder.byAction(audit.ActionConsentDenied))
	})

	s.Run("denied request is gone afterwards", func() {
		requestID := startConsent()
		_, err := s.svc.Consent(context.Background(), requestID, activeUserID, false)
		s.Require().NoError(err)
		_, err = s.svc.Consent(context.Background(), requestID, activeUserID, true)
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
	})

	s.Run("a different user cannot answer the consent prompt", func() {
		requestID := startConsent()
		_, err := s.svc.Consent(context.Background(), requestID, inactiveUserID, true)
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidRequest, oerr.Code)
	})
}

func (s *ServiceSuite) TestAuthorizationCodeGrant() {
	const verifier = "correct-horse-battery-staple"

	s.Run("full exchange succeeds with the right verifier", func() {
		code := s.authorizeFirstParty(verifier)
		result, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		s.Require().NoError(err)
		s.Equal("Bearer", result.TokenType)
		s.Equal(3600, result.ExpiresIn)
		s.Equal("files:read files:write", result.Scope)
		s.NotEmpty(result.AccessToken)
		s.NotEmpty(result.RefreshToken)

		claims, err := s.signer.Validate(result.AccessToken)
		s.Require().NoError(err)
		s.Equal(activeUserID, claims.Subject)
		s.Equal(firstPartyID, claims.ClientID)
		s.Equal([]string{"files:read", "files:write"}, claims.Scopes)
	})

	s.Run("a code is exchanged exactly once", func() {
		code := s.authorizeFirstParty(verifier)
		req := &models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		}
		_, err := s.exchange(req)
		s.Require().NoError(err)

		_, err = s.exchange(req)
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
		s.NotEmpty(s.recorder.byAction(audit.ActionCodeReplayed))
	})

	s.Run("wrong verifier fails and burns the code", func() {
		code := s.authorizeFirstParty(verifier)
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: "wrong-verifier",
			RedirectURI:  "app://callback",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)

		// The correct verifier cannot resurrect it.
		_, err = s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
	})

	s.Run("missing verifier for a challenged code fails", func() {
		code := s.authorizeFirstParty(verifier)
		_, err := s.exchange(&models.TokenRequest{
			GrantType:   string(models.GrantAuthorizationCode),
			ClientID:    firstPartyID,
			Code:        code,
			RedirectURI: "app://callback",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
	})

	s.Run("redirect URI must match byte for byte", func() {
		code := s.authorizeFirstParty(verifier)
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback/",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
	})

	s.Run("client mismatch is invalid_client and still burns the code", func() {
		code := s.authorizeFirstParty(verifier)
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     thirdPartyID,
			ClientSecret: partnerSecret,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidClient, oerr.Code)

		_, err = s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
	})

	s.Run("code is dead at exactly its expiry instant", func() {
		code := s.authorizeFirstParty(verifier)
		s.now = s.now.Add(60 * time.Second)
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
	})

	s.Run("code is live one second before expiry", func() {
		code := s.authorizeFirstParty(verifier)
		s.now = s.now.Add(59 * time.Second)
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		s.NoError(err)
	})

	s.Run("unknown code is the same opaque invalid_grant", func() {
		_, err := s.exchange(&models.TokenRequest{
			GrantType:   string(models.GrantAuthorizationCode),
			ClientID:    firstPartyID,
			Code:        "never-issued",
			RedirectURI: "app://callback",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
	})

	s.Run("wrong client secret is rejected before the code is touched", func() {
		code := s.authorizeFirstParty(verifier)
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     thirdPartyID,
			ClientSecret: "nope",
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidClient, oerr.Code)

		// The code survived the failed client authentication.
		_, err = s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		s.NoError(err)
	})

	s.Run("unsupported grant type", func() {
		_, err := s.exchange(&models.TokenRequest{
			GrantType: "client_credentials",
			ClientID:  firstPartyID,
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorUnsupportedGrantType, oerr.Code)
	})
}

func (s *ServiceSuite) TestScopeNarrowing() {
	s.Run("restricted client keeps only its allowed scopes", func() {
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:     thirdPartyID,
			RedirectURI:  thirdPartyCB,
			ResponseType: "code",
			Scope:        "profile files:read files:delete",
			UserID:       activeUserID,
		})
		s.Require().NoError(err)
		consent, err := s.svc.Consent(context.Background(), result.RequestID, activeUserID, true)
		s.Require().NoError(err)

		exchange, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     thirdPartyID,
			ClientSecret: partnerSecret,
			Code:         s.query(consent.RedirectURL).Get("code"),
			RedirectURI:  thirdPartyCB,
		})
		s.Require().NoError(err)
		s.Equal("files:read", exchange.Scope)
	})

	s.Run("wildcard client receives the request verbatim", func() {
		const verifier = "wildcard-scope-verifier"
		result, err := s.svc.Authorize(context.Background(), AuthorizeRequest{
			ClientID:            firstPartyID,
			RedirectURI:         "app://callback",
			ResponseType:        "code",
			Scope:               "profile files:read files:delete",
			CodeChallenge:       pkce.ChallengeFrom(verifier, pkce.MethodS256),
			CodeChallengeMethod: pkce.MethodS256,
			UserID:              activeUserID,
		})
		s.Require().NoError(err)

		exchange, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         s.query(result.RedirectURL).Get("code"),
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		s.Require().NoError(err)
		s.Equal("profile files:read files:delete", exchange.Scope)
	})
}

func (s *ServiceSuite) TestRefreshTokenGrant() {
	const verifier = "refresh-grant-verifier"

	issue := func() *models.TokenResult {
		code := s.authorizeFirstParty(verifier)
		result, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		s.Require().NoError(err)
		return result
	}

	s.Run("rotation replaces the token and kills the old one", func() {
		pair := issue()
		rotated, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantRefreshToken),
			ClientID:     firstPartyID,
			RefreshToken: pair.RefreshToken,
		})
		s.Require().NoError(err)
		s.NotEqual(pair.RefreshToken, rotated.RefreshToken)
		s.Equal(pair.Scope, rotated.Scope)

		_, err = s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantRefreshToken),
			ClientID:     firstPartyID,
			RefreshToken: pair.RefreshToken,
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
		s.NotEmpty(s.recorder.byAction(audit.ActionTokenReplayed))
	})

	s.Run("expired refresh token cannot rotate", func() {
		pair := issue()
		s.now = s.now.Add(7 * 24 * time.Hour)
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantRefreshToken),
			ClientID:     firstPartyID,
			RefreshToken: pair.RefreshToken,
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
	})

	s.Run("token presented by a different client is rejected", func() {
		pair := issue()
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantRefreshToken),
			ClientID:     thirdPartyID,
			ClientSecret: partnerSecret,
			RefreshToken: pair.RefreshToken,
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidClient, oerr.Code)
	})

	s.Run("revoked token cannot rotate", func() {
		pair := issue()
		s.Require().NoError(s.svc.Revoke(context.Background(), pair.RefreshToken, HintRefreshToken))
		_, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantRefreshToken),
			ClientID:     firstPartyID,
			RefreshToken: pair.RefreshToken,
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
		s.Equal(models.ErrorInvalidGrant, oerr.Code)
	})
}

func (s *ServiceSuite) TestRevoke() {
	s.Run("revoking anything reports success", func() {
		s.NoError(s.svc.Revoke(context.Background(), "unknown-token", ""))
		s.NoError(s.svc.Revoke(context.Background(), "", HintRefreshToken))
		s.NoError(s.svc.Revoke(context.Background(), "some-access-token", HintAccessToken))
	})
}

func (s *ServiceSuite) TestLogout() {
	const verifier = "logout-verifier"

	issue := func() *models.TokenResult {
		code := s.authorizeFirstParty(verifier)
		result, err := s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantAuthorizationCode),
			ClientID:     firstPartyID,
			Code:         code,
			CodeVerifier: verifier,
			RedirectURI:  "app://callback",
		})
		s.Require().NoError(err)
		return result
	}

	s.Run("logout blacklists the access token and kills the refresh token", func() {
		pair := issue()
		outcome := s.svc.Logout(context.Background(), pair.AccessToken, pair.RefreshToken, activeUserID)
		s.True(outcome.Attempted)
		s.NoError(outcome.Err)

		claims, err := s.signer.Validate(pair.AccessToken)
		s.Require().NoError(err)
		revoked, err := s.blacklist.IsRevoked(context.Background(), claims.ID)
		s.Require().NoError(err)
		s.True(revoked)

		_, err = s.exchange(&models.TokenRequest{
			GrantType:    string(models.GrantRefreshToken),
			ClientID:     firstPartyID,
			RefreshToken: pair.RefreshToken,
		})
		var oerr *models.OAuthError
		s.Require().ErrorAs(err, &oerr)
	})

	s.Run("logout with an already-expired access token still succeeds", func() {
		pair := issue()
		s.now = s.now.Add(2 * time.Hour)
		outcome := s.svc.Logout(context.Background(), pair.AccessToken, "", activeUserID)
		s.False(outcome.Attempted)
		s.NoError(outcome.Err)
	})

	s.Run("logout-all reports the number of ended sessions", func() {
		first := issue()
		second := issue()
		count, err := s.svc.LogoutAll(context.Background(), activeUserID)
		s.Require().NoError(err)
		s.GreaterOrEqual(count, 2)

		for _, token := range []string{first.RefreshToken, second.RefreshToken} {
			_, err := s.exchange(&models.TokenRequest{
				GrantType:    string(models.GrantRefreshToken),
				ClientID:     firstPartyID,
				RefreshToken: token,
			})
			var oerr *models.OAuthError
			s.Require().ErrorAs(err, &oerr)
		}
	})
}
