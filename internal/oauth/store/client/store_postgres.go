package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

// PostgresStore reads client registrations from PostgreSQL.
//
// Schema (owned by the admin service's migrations):
//
//	CREATE TABLE oauth_clients (
//	    id                 TEXT PRIMARY KEY,
//	    name               TEXT NOT NULL,
//	    client_id          TEXT NOT NULL UNIQUE,
//	    client_secret_hash TEXT,
//	    redirect_uris      TEXT[] NOT NULL DEFAULT '{}',
//	    scopes             TEXT[] NOT NULL DEFAULT '{}',
//	    is_first_party     BOOLEAN NOT NULL DEFAULT FALSE,
//	    is_public          BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at         TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed client store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	query := `
		SELECT id, name, client_id, COALESCE(client_secret_hash, ''),
		       redirect_uris, scopes, is_first_party, is_public, created_at
		FROM oauth_clients
		WHERE client_id = $1
	`
	record := &models.Client{}
	var redirectURIs, scopes pq.StringArray
	err := s.db.QueryRowContext(ctx, query, clientID).Scan(
		&record.ID,
		&record.Name,
		&record.ClientID,
		&record.ClientSecretHash,
		&redirectURIs,
		&scopes,
		&record.IsFirstParty,
		&record.IsPublic,
		&record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	record.RedirectURIs = redirectURIs
	record.Scopes = scopes
	return record, nil
}
