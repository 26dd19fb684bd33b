package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the full database layout. Statements are idempotent so
// Migrate can run on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS account_settings (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	host            TEXT NOT NULL,
	port            INTEGER NOT NULL,
	username        TEXT NOT NULL,
	password        TEXT NOT NULL,
	default_folder  TEXT NOT NULL DEFAULT 'INBOX',
	max_results     INTEGER NOT NULL DEFAULT 25,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tags (
	name    TEXT PRIMARY KEY,
	marker  TEXT NOT NULL,
	color   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS tags_name_ci ON tags (LOWER(name));
CREATE UNIQUE INDEX IF NOT EXISTS tags_marker_ci ON tags (LOWER(marker));

CREATE TABLE IF NOT EXISTS prompt_variables (
	key     TEXT PRIMARY KEY,
	value   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS prompt_variables_key_ci ON prompt_variables (LOWER(key));

CREATE TABLE IF NOT EXISTS query_history (
	id             UUID PRIMARY KEY,
	created_at     TIMESTAMPTZ NOT NULL,
	folder         TEXT NOT NULL DEFAULT '',
	all_folders    BOOLEAN NOT NULL DEFAULT FALSE,
	criteria       JSONB NOT NULL,
	options        JSONB NOT NULL,
	prompt         TEXT NOT NULL,
	emails         JSONB NOT NULL DEFAULT '[]',
	results        JSONB,
	combined_text  TEXT NOT NULL DEFAULT '',
	combined_tags  JSONB,
	error          TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS query_history_created_at ON query_history (created_at DESC);
`

// Migrate applies the schema to the database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
