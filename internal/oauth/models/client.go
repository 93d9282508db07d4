package models

import (
	"time"

	dErrors "drivegate/pkg/domain-errors"
)

// Client is a registered OAuth 2.0 application. Records are created and
// updated by the admin surface only; this core treats them as read-only.
//
// Invariants:
//   - ClientID is non-empty (the public identifier used on the wire)
//   - a public client never has a secret hash
//   - a third-party client has at least one registered redirect URI
type Client struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ClientID         string    `json:"client_id"`
	ClientSecretHash string    `json:"-"` // bcrypt hash, never serialized
	RedirectURIs     []string  `json:"redirect_uris"`
	Scopes           []string  `json:"scopes"`
	IsFirstParty     bool      `json:"is_first_party"`
	IsPublic         bool      `json:"is_public"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewClient validates and constructs a client registration.
func NewClient(
	id string,
	name string,
	clientID string,
	clientSecretHash string,
	redirectURIs []string,
	scopes []string,
	isFirstParty bool,
	isPublic bool,
	now time.Time,
) (*Client, error) {
	if clientID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "client_id cannot be empty")
	}
	if isPublic && clientSecretHash != "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "public client cannot have a secret")
	}
	if !isFirstParty && len(redirectURIs) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "third-party client requires redirect_uris")
	}
	return &Client{
		ID:               id,
		Name:             name,
		ClientID:         clientID,
		ClientSecretHash: clientSecretHash,
		RedirectURIs:     redirectURIs,
		Scopes:           scopes,
		IsFirstParty:     isFirstParty,
		IsPublic:         isPublic,
		CreatedAt:        now,
	}, nil
}

// IsConfidential reports whether the client holds a server-side secret.
// Public clients (SPAs, native apps) cannot store one securely.
func (c *Client) IsConfidential() bool {
	return c.ClientSecretHash != ""
}

// AllowsRedirectURI checks a requested redirect URI against the registration.
// First-party clients are trusted with any URI the parser accepted upstream;
// everyone else must byte-match a registered entry, with no normalization.
func (c *Client) AllowsRedirectURI(redirectURI string) bool {
	if c.IsFirstParty {
		return true
	}
	for _, registered := range c.RedirectURIs {
		if registered == redirectURI {
			return true
		}
	}
	return false
}
