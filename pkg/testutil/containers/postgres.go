//go:build integration

// Package containers starts the backing services for integration tests.
// Everything here is behind the integration build tag; unit tests never pull
// Docker in.
package containers

import (
	"context"
	"database/sql"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with an open
// database handle.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a PostgreSQL container and opens a connection.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("drivegate_test"),
		tcpostgres.WithUsername("drivegate"),
		tcpostgres.WithPassword("drivegate"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// CreateOAuthSchema applies the tables the OAuth stores expect. Production
// migrations are owned elsewhere; tests create the same shape directly.
func (p *PostgresContainer) CreateOAuthSchema(t *testing.T) {
	t.Helper()

	const schema = `
		CREATE TABLE IF NOT EXISTS oauth_clients (
		    id                 TEXT PRIMARY KEY,
		    name               TEXT NOT NULL,
		    client_id          TEXT NOT NULL UNIQUE,
		    client_secret_hash TEXT,
		    redirect_uris      TEXT[] NOT NULL DEFAULT '{}',
		    scopes             TEXT[] NOT NULL DEFAULT '{}',
		    is_first_party     BOOLEAN NOT NULL DEFAULT FALSE,
		    is_public          BOOLEAN NOT NULL DEFAULT FALSE,
		    created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS users (
		    id     TEXT PRIMARY KEY,
		    email  TEXT NOT NULL UNIQUE,
		    name   TEXT NOT NULL DEFAULT '',
		    active BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE TABLE IF NOT EXISTS oauth_authorization_codes (
		    id                    TEXT PRIMARY KEY,
		    user_id               TEXT NOT NULL,
		    client_id             TEXT NOT NULL,
		    scopes                TEXT[] NOT NULL DEFAULT '{}',
		    redirect_uri          TEXT NOT NULL,
		    code_challenge        TEXT,
		    code_challenge_method TEXT,
		    revoked               BOOLEAN NOT NULL DEFAULT FALSE,
		    created_at            TIMESTAMPTZ NOT NULL,
		    expires_at            TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS oauth_refresh_tokens (
		    id         TEXT PRIMARY KEY,
		    user_id    TEXT NOT NULL,
		    client_id  TEXT NOT NULL,
		    scopes     TEXT[] NOT NULL DEFAULT '{}',
		    revoked    BOOLEAN NOT NULL DEFAULT FALSE,
		    created_at TIMESTAMPTZ NOT NULL,
		    expires_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user_live
		    ON oauth_refresh_tokens (user_id) WHERE NOT revoked;
	`
	if _, err := p.DB.Exec(schema); err != nil {
		t.Fatalf("failed to create oauth schema: %v", err)
	}
}

// TruncateOAuthTables clears all OAuth state between tests.
func (p *PostgresContainer) TruncateOAuthTables(t *testing.T) {
	t.Helper()
	if _, err := p.DB.Exec(`TRUNCATE oauth_authorization_codes, oauth_refresh_tokens, oauth_clients, users`); err != nil {
		t.Fatalf("failed to truncate oauth tables: %v", err)
	}
}
