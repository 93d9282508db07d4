// Package audit captures the security-relevant moments of the token
// lifecycle: issuance, rotation, revocation, and replay attempts. Events are
// append-only; refresh-token rows plus this trail are what replay
// investigations run on.
package audit

import (
	"time"

	"github.com/mssola/useragent"
)

// Actions emitted by the authorization flow.
const (
	ActionCodeIssued     = "authorization_code.issued"
	ActionCodeReplayed   = "authorization_code.replayed"
	ActionTokenIssued    = "token.issued"
	ActionTokenRefreshed = "token.refreshed"
	ActionTokenReplayed  = "refresh_token.replayed"
	ActionTokenRevoked   = "refresh_token.revoked"
	ActionConsentDenied  = "consent.denied"
	ActionLogout         = "logout"
)

// Event is one audit record. Keep it transport-agnostic so sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	Scopes    []string  `json:"scopes,omitempty"`
	Device    string    `json:"device,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// DeviceSummary condenses a User-Agent header into a short human-readable
// browser/platform label for audit records. Empty input yields empty output.
func DeviceSummary(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	if name == "" {
		return ua.OS()
	}
	if os := ua.OS(); os != "" {
		return name + " " + version + " / " + os
	}
	return name + " " + version
}
