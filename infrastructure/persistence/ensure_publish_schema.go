package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsurePublishSchema creates the publishing tables and adds newer columns
// when they are missing. Safe to call at startup; performs metadata lookups
// and conditional DDL only.
func EnsurePublishSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS platform_configs (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			app_id TEXT NOT NULL,
			app_secret_enc TEXT NOT NULL,
			stored_token_enc TEXT,
			refresh_token_enc TEXT,
			account_name TEXT NOT NULL DEFAULT '',
			subject_type TEXT NOT NULL DEFAULT 'enterprise',
			can_publish BOOLEAN NOT NULL DEFAULT TRUE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			disabled_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS publish_records (
			id BIGSERIAL PRIMARY KEY,
			content_id TEXT NOT NULL,
			config_id BIGINT NOT NULL REFERENCES platform_configs (id),
			user_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			status TEXT NOT NULL,
			post_id TEXT,
			post_url TEXT,
			error_code TEXT,
			error_message TEXT,
			attempt_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_publish_records_user ON publish_records (user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_publish_records_content ON publish_records (content_id)`,
	}
	for _, ddl := range tables {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensuring publish schema failed: %w", err)
		}
	}

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"platform_configs", "subject_type", "ALTER TABLE platform_configs ADD COLUMN subject_type TEXT NOT NULL DEFAULT 'enterprise'"},
		{"platform_configs", "refresh_token_enc", "ALTER TABLE platform_configs ADD COLUMN refresh_token_enc TEXT"},
		{"publish_records", "attempt_count", "ALTER TABLE publish_records ADD COLUMN attempt_count INT NOT NULL DEFAULT 0"},
	}
	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
