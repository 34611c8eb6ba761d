package migration

import (
	"context"

	"divdataset/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner creates the session cache schema. The statements are portable
// between PostgreSQL and SQLite.
type MigrationRunner struct{}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{}
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSessionCacheTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create session_cache table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createSessionCacheTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS session_cache (
			cache_key  TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			expires_at BIGINT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_session_cache_expires_at ON session_cache (expires_at)
	`)
	return err
}
