package refreshtoken

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

// PostgresStore persists refresh tokens in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE oauth_refresh_tokens (
//	    id         TEXT PRIMARY KEY,
//	    user_id    TEXT NOT NULL,
//	    client_id  TEXT NOT NULL,
//	    scopes     TEXT[] NOT NULL DEFAULT '{}',
//	    revoked    BOOLEAN NOT NULL DEFAULT FALSE,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX oauth_refresh_tokens_user_idx ON oauth_refresh_tokens (user_id) WHERE NOT revoked;
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed refresh token store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO oauth_refresh_tokens (id, user_id, client_id, scopes, revoked, created_at, expires_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		token.Token,
		token.UserID,
		token.ClientID,
		pq.Array(token.Scopes),
		token.CreatedAt,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// Consume redeems a token for rotation with the same single conditional
// update as the authorization code store: one winner, losers indistinguishable
// from revoked tokens to callers.
func (s *PostgresStore) Consume(ctx context.Context, token string, now time.Time) (*models.RefreshToken, error) {
	query := `
		UPDATE oauth_refresh_tokens
		SET revoked = TRUE
		WHERE id = $1 AND NOT revoked
		RETURNING id, user_id, client_id, scopes, created_at, expires_at
	`
	record := &models.RefreshToken{Revoked: true}
	var scopes pq.StringArray
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&record.Token,
		&record.UserID,
		&record.ClientID,
		&scopes,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return s.findRevoked(ctx, token)
	}
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	record.Scopes = scopes

	if record.IsExpired(now) {
		return record, fmt.Errorf("%s: %w", models.ErrRefreshTokenExpired.Error(), sentinel.ErrExpired)
	}
	return record, nil
}

func (s *PostgresStore) findRevoked(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, client_id, scopes, revoked, created_at, expires_at
		FROM oauth_refresh_tokens
		WHERE id = $1
	`
	record := &models.RefreshToken{}
	var scopes pq.StringArray
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&record.Token,
		&record.UserID,
		&record.ClientID,
		&scopes,
		&record.Revoked,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refresh token: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	record.Scopes = scopes
	return record, fmt.Errorf("%s: %w", models.ErrRefreshTokenRevoked.Error(), sentinel.ErrRevoked)
}

// Revoke retires a token without rotation. The conditional update makes it
// idempotent; affected=0 means unknown or already revoked, both reported as
// false without error.
func (s *PostgresStore) Revoke(ctx context.Context, token string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE oauth_refresh_tokens SET revoked = TRUE WHERE id = $1 AND NOT revoked`, token)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return n > 0, nil
}

// RevokeAllForUser retires every live token for the user in one statement.
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE oauth_refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked`, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke user refresh tokens: %w", err)
	}
	return int(n), nil
}

// DeleteExpired removes tokens dead as of now, for external housekeeping.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oauth_refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return int(n), nil
}
