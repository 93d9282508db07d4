// Package service is the protocol orchestrator: it drives the authorization
// state machine from /authorize through consent to code issuance, redeems
// codes and refresh tokens at the token endpoint, and handles revocation.
// Everything stateful lives behind the store interfaces; the service itself
// holds no cross-request state.
package service

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"drivegate/internal/audit"
	"drivegate/internal/jwttoken"
	"drivegate/internal/oauth/models"
	"drivegate/internal/oauth/registry"
	"drivegate/internal/platform/metrics"
)

// CodeStore persists single-use authorization codes. Consume must be atomic:
// two racing redeemers for one code get exactly one success, and a found code
// is burned whether or not validation passed.
type CodeStore interface {
	Create(ctx context.Context, code *models.AuthorizationCode) error
	Consume(ctx context.Context, code string, now time.Time) (*models.AuthorizationCode, error)
}

// RefreshTokenStore persists rotating refresh tokens under the same atomic
// Consume contract.
type RefreshTokenStore interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	Consume(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error)
	Revoke(ctx context.Context, token string) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}

// AuthRequestStore holds in-flight authorization requests between /authorize
// and code issuance.
type AuthRequestStore interface {
	Save(ctx context.Context, req *models.AuthorizationRequest) error
	Find(ctx context.Context, id string, now time.Time) (*models.AuthorizationRequest, error)
	Delete(ctx context.Context, id string) error
}

// UserStore is the boundary to the external user directory.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Blacklist records access-token jtis revoked at logout. Optional; a nil
// blacklist means logout skips the best-effort invalidation entirely.
type Blacklist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// Emitter accepts audit events without blocking the request path.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Config carries the lifecycle parameters the orchestrator needs.
type Config struct {
	AccessTokenTTL  time.Duration
	AuthCodeTTL     time.Duration
	RefreshTokenTTL time.Duration
	AuthRequestTTL  time.Duration

	// Where unauthenticated and consent-pending users are sent.
	LoginURL   string
	ConsentURL string
}

// Deps are the collaborators the service orchestrates.
type Deps struct {
	Codes    CodeStore
	Refresh  RefreshTokenStore
	Requests AuthRequestStore
	Users    UserStore
	Registry *registry.Registry
	Signer   *jwttoken.Service
	Audit    Emitter
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Service implements the authorization-server core.
type Service struct {
	codes     CodeStore
	refresh   RefreshTokenStore
	requests  AuthRequestStore
	users     UserStore
	registry  *registry.Registry
	signer    *jwttoken.Service
	audit     Emitter
	metrics   *metrics.Metrics
	logger    *slog.Logger
	blacklist Blacklist
	tracer    trace.Tracer
	cfg       Config
	clock     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithBlacklist wires the best-effort access-token blacklist used at logout.
func WithBlacklist(b Blacklist) Option {
	return func(s *Service) {
		s.blacklist = b
	}
}

// New constructs the orchestrator.
func New(deps Deps, cfg Config, opts ...Option) *Service {
	s := &Service{
		codes:    deps.Codes,
		refresh:  deps.Refresh,
		requests: deps.Requests,
		users:    deps.Users,
		registry: deps.Registry,
		signer:   deps.Signer,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		tracer:   otel.Tracer("drivegate/oauth"),
		cfg:      cfg,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// buildRedirect appends params to a base URL, preserving any query the client
// registered into its redirect URI.
func buildRedirect(base string, params url.Values) string {
	u, err := url.Parse(base)
	if err != nil {
		// The URI was validated upstream; an unparsable base here is a bug,
		// not an input error. Fall back to the raw base rather than panic.
		return base
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
