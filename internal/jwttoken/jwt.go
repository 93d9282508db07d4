// Package jwttoken is the token-signing collaborator: it mints and verifies
// the stateless bearer access tokens. The grant orchestration around it
// treats it as an opaque sign/verify service.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "drivegate/pkg/domain-errors"
)

// AccessTokenClaims carries the granted scopes and owning client alongside
// the registered subject/expiry set.
type AccessTokenClaims struct {
	Scopes   []string `json:"scopes"`
	ClientID string   `json:"client_id"`
	jwt.RegisteredClaims
}

// Service signs and validates HS256 access tokens.
type Service struct {
	signingKey []byte
	issuer     string
	clock      func() time.Time
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

// New constructs a token service with the given signing key and issuer.
func New(signingKey, issuer string, opts ...Option) *Service {
	s := &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		clock:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Sign mints an access token for the subject with the given scope grant.
// Returns the compact token and its jti for best-effort revocation tracking.
func (s *Service) Sign(subjectID string, scopes []string, clientID string, ttl time.Duration) (string, string, error) {
	now := s.clock()
	jti := uuid.NewString()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		Scopes:   scopes,
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        jti,
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Validate parses and verifies a token, returning its claims.
func (s *Service) Validate(tokenString string) (*AccessTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.clock))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// RemainingTTL reports how long a token's claims are still live; zero when
// already expired. Used when blacklisting at logout so the revocation entry
// dies with the token.
func (s *Service) RemainingTTL(claims *AccessTokenClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(s.clock())
	if remaining < 0 {
		return 0
	}
	return remaining
}
