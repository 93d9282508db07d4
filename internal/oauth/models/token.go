package models

import "strings"

// GrantType enumerates the supported token grants.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
)

// TokenRequest is the parsed body of POST /oauth/token for either grant.
type TokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret,omitempty"`

	// authorization_code grant
	Code         string `json:"code,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`

	// refresh_token grant
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Normalize trims whitespace the transport may have let through.
func (r *TokenRequest) Normalize() {
	r.GrantType = strings.TrimSpace(r.GrantType)
	r.ClientID = strings.TrimSpace(r.ClientID)
	r.Code = strings.TrimSpace(r.Code)
	r.RedirectURI = strings.TrimSpace(r.RedirectURI)
	r.RefreshToken = strings.TrimSpace(r.RefreshToken)
}

// Validate checks structural requirements per grant. Binding and lifecycle
// checks happen downstream; this only rejects requests that are malformed on
// their face.
func (r *TokenRequest) Validate() *OAuthError {
	if r.GrantType == "" {
		return InvalidRequest("grant_type is required")
	}
	if r.ClientID == "" {
		return InvalidRequest("client_id is required")
	}
	switch GrantType(r.GrantType) {
	case GrantAuthorizationCode:
		if r.Code == "" {
			return InvalidRequest("code is required")
		}
		if r.RedirectURI == "" {
			return InvalidRequest("redirect_uri is required")
		}
	case GrantRefreshToken:
		if r.RefreshToken == "" {
			return InvalidRequest("refresh_token is required")
		}
	default:
		return UnsupportedGrantType()
	}
	return nil
}

// TokenResult is the successful token-endpoint response body.
type TokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}
