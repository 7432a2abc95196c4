package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	timezone      TEXT NOT NULL DEFAULT 'UTC',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session_records (
	id               UUID PRIMARY KEY,
	user_id          UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	recorded_at      TIMESTAMPTZ NOT NULL,
	activity         TEXT NOT NULL CHECK (activity IN ('breathe', 'focus', 'rest', 'sleep')),
	duration_seconds INTEGER NOT NULL CHECK (duration_seconds >= 0)
);

CREATE INDEX IF NOT EXISTS idx_session_records_user_time ON session_records (user_id, recorded_at);

CREATE TABLE IF NOT EXISTS sleep_samples (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	start_time TIMESTAMPTZ NOT NULL,
	end_time   TIMESTAMPTZ NOT NULL,
	stage_code SMALLINT NOT NULL,
	CHECK (end_time > start_time)
);

CREATE INDEX IF NOT EXISTS idx_sleep_samples_user_end ON sleep_samples (user_id, end_time);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_records (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	recorded_at      TEXT NOT NULL,
	activity         TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_records_user_time ON session_records (user_id, recorded_at);

CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// MigratePostgres creates the tables the server needs. It is idempotent.
func MigratePostgres(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("repository: postgres migration failed: %w", err)
	}
	return nil
}

func MigrateSQLite(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("repository: sqlite migration failed: %w", err)
	}
	return nil
}
