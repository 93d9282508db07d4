package client

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"drivegate/internal/oauth/models"
)

// SeedDev loads the development client set into a memory store: the
// first-party web app (public, PKCE, wildcard scope, consent skipped) and a
// confidential third-party integration with a narrow grant.
func SeedDev(ctx context.Context, store *InMemoryStore, now time.Time) error {
	webApp := &models.Client{
		ID:           "c0a80121-7ac0-4e1c-9b3d-1f1f9f1d0001",
		Name:         "Drive Web",
		ClientID:     "drive-web",
		RedirectURIs: []string{"http://localhost:5173/auth/callback"},
		Scopes:       []string{"*"},
		IsFirstParty: true,
		IsPublic:     true,
		CreatedAt:    now,
	}
	if err := store.Put(ctx, webApp); err != nil {
		return err
	}

	secretHash, err := bcrypt.GenerateFromPassword([]byte("partner-dev-secret"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	partner := &models.Client{
		ID:               "c0a80121-7ac0-4e1c-9b3d-1f1f9f1d0002",
		Name:             "Partner Sync",
		ClientID:         "partner-sync",
		ClientSecretHash: string(secretHash),
		RedirectURIs:     []string{"https://partner.test/oauth/callback"},
		Scopes:           []string{"files:read", "files:write", "profile"},
		IsFirstParty:     false,
		IsPublic:         false,
		CreatedAt:        now,
	}
	return store.Put(ctx, partner)
}
