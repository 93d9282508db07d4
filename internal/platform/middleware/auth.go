package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// Blacklist answers whether a token's jti was revoked at logout. Entries
// expire with the token itself; this is best-effort revocation, not a
// guarantee (see the revoke endpoint's contract).
type Blacklist interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenClaims is what downstream handlers get from a validated bearer token.
type TokenClaims struct {
	UserID   string
	ClientID string
	Scopes   []string
	JTI      string
	RawToken string
}

type contextKeyClaims struct{}

// GetClaims retrieves the validated token claims from the context.
func GetClaims(ctx context.Context) *TokenClaims {
	claims, ok := ctx.Value(contextKeyClaims{}).(*TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"INVALID_TOKEN","message":"` + description + `"}}`))
}

// RequireAuth validates the bearer token and, when a blacklist is wired,
// rejects tokens revoked at logout. A blacklist lookup failure fails open:
// access tokens are stateless by design and the blacklist is an extra, not a
// gate on every request's availability.
func RequireAuth(validator TokenValidator, blacklist Blacklist, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "The access token is invalid.")
				return
			}

			if blacklist != nil && claims.JTI != "" {
				revoked, err := blacklist.IsRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "token blacklist check failed",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
				} else if revoked {
					writeUnauthorized(w, "The access token is invalid.")
					return
				}
			}

			claims.RawToken = token
			ctx = context.WithValue(ctx, contextKeyClaims{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
