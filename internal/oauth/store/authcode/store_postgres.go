package authcode

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

// PostgresStore persists authorization codes in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE oauth_authorization_codes (
//	    id                    TEXT PRIMARY KEY,
//	    user_id               TEXT NOT NULL,
//	    client_id             TEXT NOT NULL,
//	    scopes                TEXT[] NOT NULL DEFAULT '{}',
//	    redirect_uri          TEXT NOT NULL,
//	    code_challenge        TEXT,
//	    code_challenge_method TEXT,
//	    revoked               BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at            TIMESTAMPTZ NOT NULL,
//	    expires_at            TIMESTAMPTZ NOT NULL
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed authorization code store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, code *models.AuthorizationCode) error {
	query := `
		INSERT INTO oauth_authorization_codes
			(id, user_id, client_id, scopes, redirect_uri, code_challenge, code_challenge_method, revoked, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), FALSE, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		code.Code,
		code.UserID,
		code.ClientID,
		pq.Array(code.Scopes),
		code.RedirectURI,
		code.CodeChallenge,
		code.CodeChallengeMethod,
		code.CreatedAt,
		code.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create authorization code: %w", err)
	}
	return nil
}

// Consume redeems a code with a single conditional update, never a read
// followed by a write: `SET revoked = TRUE ... AND NOT revoked` guarantees
// one winner under concurrent redemption. Expiry is validated after winning;
// burning an expired code is harmless and keeps the flip unconditional.
func (s *PostgresStore) Consume(ctx context.Context, code string, now time.Time) (*models.AuthorizationCode, error) {
	query := `
		UPDATE oauth_authorization_codes
		SET revoked = TRUE
		WHERE id = $1 AND NOT revoked
		RETURNING id, user_id, client_id, scopes, redirect_uri,
		          COALESCE(code_challenge, ''), COALESCE(code_challenge_method, ''),
		          created_at, expires_at
	`
	record := &models.AuthorizationCode{Revoked: true}
	var scopes pq.StringArray
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&record.Code,
		&record.UserID,
		&record.ClientID,
		&scopes,
		&record.RedirectURI,
		&record.CodeChallenge,
		&record.CodeChallengeMethod,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race or never existed; the distinction stays server-side.
		return s.findRevoked(ctx, code)
	}
	if err != nil {
		return nil, fmt.Errorf("consume authorization code: %w", err)
	}
	record.Scopes = scopes

	if record.IsExpired(now) {
		return record, fmt.Errorf("%s: %w", models.ErrCodeExpired.Error(), sentinel.ErrExpired)
	}
	return record, nil
}

func (s *PostgresStore) findRevoked(ctx context.Context, code string) (*models.AuthorizationCode, error) {
	query := `
		SELECT id, user_id, client_id, scopes, redirect_uri,
		       COALESCE(code_challenge, ''), COALESCE(code_challenge_method, ''),
		       revoked, created_at, expires_at
		FROM oauth_authorization_codes
		WHERE id = $1
	`
	record := &models.AuthorizationCode{}
	var scopes pq.StringArray
	err := s.db.QueryRowContext(ctx, query, code).Scan(
		&record.Code,
		&record.UserID,
		&record.ClientID,
		&scopes,
		&record.RedirectURI,
		&record.CodeChallenge,
		&record.CodeChallengeMethod,
		&record.Revoked,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("authorization code: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find authorization code: %w", err)
	}
	record.Scopes = scopes
	return record, fmt.Errorf("%s: %w", models.ErrCodeRevoked.Error(), sentinel.ErrRevoked)
}

// DeleteExpired removes codes dead as of now, for external housekeeping jobs.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oauth_authorization_codes WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired authorization codes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired authorization codes: %w", err)
	}
	return int(n), nil
}
