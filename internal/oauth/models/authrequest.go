package models

import "time"

// AuthRequestStatus tracks the in-flight request through the authorization
// state machine. Terminal states exist only for observability; terminal
// requests are deleted from the store as soon as they are reached.
type AuthRequestStatus string

const (
	AuthRequestPendingAuthentication AuthRequestStatus = "pending_authentication"
	AuthRequestPendingConsent        AuthRequestStatus = "pending_consent"
	AuthRequestCodeIssued            AuthRequestStatus = "code_issued"
	AuthRequestDenied                AuthRequestStatus = "denied"
)

// AuthorizationRequest is the transient state held between /authorize and the
// moment a code is issued or the flow aborts. It is addressed by a
// correlation ID with a TTL bounding the user's login/consent window, and is
// discarded the instant the flow terminates.
type AuthorizationRequest struct {
	ID                  string            `json:"id"`
	ClientID            string            `json:"client_id"` // public client_id, not the row ID
	RedirectURI         string            `json:"redirect_uri"`
	State               string            `json:"state"`
	Scopes              []string          `json:"scopes"` // already narrowed to the client's allowed set
	CodeChallenge       string            `json:"code_challenge,omitempty"`
	CodeChallengeMethod string            `json:"code_challenge_method,omitempty"`
	UserID              string            `json:"user_id,omitempty"` // set once authenticated
	Status              AuthRequestStatus `json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
	ExpiresAt           time.Time         `json:"expires_at"`
}

func (r *AuthorizationRequest) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
