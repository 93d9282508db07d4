package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"drivegate/internal/oauth/models"
	"drivegate/pkg/platform/sentinel"
)

// PostgresStore reads the slice of the user directory this core needs.
//
// Schema (owned by the directory service's migrations):
//
//	CREATE TABLE users (
//	    id     TEXT PRIMARY KEY,
//	    email  TEXT NOT NULL UNIQUE,
//	    name   TEXT NOT NULL DEFAULT '',
//	    active BOOLEAN NOT NULL DEFAULT TRUE
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, name, active FROM users WHERE id = $1`
	record := &models.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Email,
		&record.Name,
		&record.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return record, nil
}
