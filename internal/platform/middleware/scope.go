package middleware

import (
	"encoding/json"
	"net/http"

	"drivegate/internal/oauth/scope"
)

// RequireScope gates a route on the bearer token's granted scopes. Any one of
// the listed scopes suffices; granted wildcards ("*", "files:*") match per
// the scope package's rules. Must run after RequireAuth.
func RequireScope(scopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(scopes) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			claims := GetClaims(r.Context())
			if claims == nil {
				writeUnauthorized(w, "The access token is invalid.")
				return
			}

			if !scope.SatisfiesAny(claims.Scopes, scopes...) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"code":            "INSUFFICIENT_SCOPE",
						"message":         "The access token does not have the required scopes.",
						"required_scopes": scopes,
					},
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
