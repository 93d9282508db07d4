package models

import "fmt"

// RFC 6749 §5.2 / §4.1.2.1 error codes. These are the only codes this server
// emits; anything finer-grained would hand an attacker an enumeration oracle.
const (
	ErrorInvalidRequest       = "invalid_request"
	ErrorInvalidClient        = "invalid_client"
	ErrorInvalidGrant         = "invalid_grant"
	ErrorAccessDenied         = "access_denied"
	ErrorUnsupportedGrantType = "unsupported_grant_type"
)

// OAuthError is a protocol-level failure carried to the client either as a
// JSON body or as redirect query parameters. It deliberately says nothing
// about whether a credential was unknown, already used, or expired.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *OAuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func InvalidRequest(description string) *OAuthError {
	return &OAuthError{Code: ErrorInvalidRequest, Description: description}
}

// InvalidClient covers unknown client IDs and client/credential mismatches.
func InvalidClient() *OAuthError {
	return &OAuthError{Code: ErrorInvalidClient, Description: "The client identifier provided is invalid."}
}

// InvalidGrant is the single opaque answer for every bad, expired, revoked, or
// mismatched code or refresh token.
func InvalidGrant() *OAuthError {
	return &OAuthError{Code: ErrorInvalidGrant, Description: "The provided authorization grant is invalid."}
}

func AccessDenied() *OAuthError {
	return &OAuthError{Code: ErrorAccessDenied, Description: "The resource owner denied the request."}
}

func UnsupportedGrantType() *OAuthError {
	return &OAuthError{Code: ErrorUnsupportedGrantType, Description: "The authorization grant type is not supported."}
}
