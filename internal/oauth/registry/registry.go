// Package registry validates client identity, redirect URIs, and requested
// scopes against the registered client record.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"golang.org/x/crypto/bcrypt"

	"drivegate/internal/oauth/models"
	"drivegate/internal/oauth/scope"
	"drivegate/pkg/platform/sentinel"
)

// Validation failures. The orchestrator maps these onto RFC 6749 wire errors;
// crucially, ErrUnknownClient and ErrRedirectMismatch must never lead to a
// redirect response.
var (
	ErrUnknownClient    = errors.New("unknown client")
	ErrRedirectMismatch = errors.New("redirect_uri not registered for client")
	ErrPKCERequired     = errors.New("pkce code_challenge required for public client")
	ErrBadClientSecret  = errors.New("client secret mismatch")
)

// ClientStore is the read-only lookup the registry needs.
type ClientStore interface {
	FindByClientID(ctx context.Context, clientID string) (*models.Client, error)
}

// Registry answers the questions the authorization flow asks about clients.
type Registry struct {
	clients ClientStore
}

func New(clients ClientStore) *Registry {
	return &Registry{clients: clients}
}

// Find resolves a client by its public identifier. Used by the token endpoint
// where no redirect URI is in play.
func (r *Registry) Find(ctx context.Context, clientID string) (*models.Client, error) {
	client, err := r.clients.FindByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrUnknownClient
		}
		return nil, fmt.Errorf("resolve client: %w", err)
	}
	return client, nil
}

// Validate resolves the client and checks the redirect URI binding.
//
// First-party clients accept any syntactically valid absolute URI; their
// trusted surfaces (native-app custom schemes, dev hosts) vary by build.
// Everyone else must byte-match a registered entry; no normalization happens
// here beyond what the URI parser already did upstream.
func (r *Registry) Validate(ctx context.Context, clientID, redirectURI string) (*models.Client, error) {
	client, err := r.clients.FindByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, ErrUnknownClient
		}
		return nil, fmt.Errorf("resolve client: %w", err)
	}

	if client.IsFirstParty {
		if u, err := url.Parse(redirectURI); err != nil || u.Scheme == "" {
			return nil, ErrRedirectMismatch
		}
		return client, nil
	}

	if !client.AllowsRedirectURI(redirectURI) {
		return nil, ErrRedirectMismatch
	}
	return client, nil
}

// RequirePKCEIfPublic enforces that public clients arrive at /authorize with
// a code challenge; they have no secret, so PKCE is their only binding.
func (r *Registry) RequirePKCEIfPublic(client *models.Client, challengePresent bool) error {
	if client.IsPublic && !challengePresent {
		return ErrPKCERequired
	}
	return nil
}

// VerifySecret checks a presented client secret against the stored bcrypt
// hash. A confidential client's secret, when presented, must match; clients
// that present no secret pass through (PKCE or possession of the code is
// their binding).
func (r *Registry) VerifySecret(client *models.Client, secret string) error {
	if secret == "" {
		return nil
	}
	if !client.IsConfidential() {
		return ErrBadClientSecret
	}
	if bcrypt.CompareHashAndPassword([]byte(client.ClientSecretHash), []byte(secret)) != nil {
		return ErrBadClientSecret
	}
	return nil
}

// NarrowScopes reduces a raw requested scope string to what the client may
// hold. Disallowed scopes are dropped silently, not errored; the grant simply
// shows what survived.
func (r *Registry) NarrowScopes(requested string, client *models.Client) []string {
	return scope.Narrow(scope.Parse(requested), client.Scopes)
}
