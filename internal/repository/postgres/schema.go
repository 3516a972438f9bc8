package postgres

import (
	"context"
	"fmt"
)

// Migrate накатывает схему при старте. Для single-binary утилиты этого
// достаточно; отдельного мигратора у проекта нет.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS monitored_groups (
			id       BIGINT PRIMARY KEY,
			name     TEXT NOT NULL,
			hosted   BOOLEAN NOT NULL DEFAULT FALSE,
			position INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS ado_configs (
			id                BIGSERIAL PRIMARY KEY,
			organization_name TEXT NOT NULL UNIQUE,
			pat_token         TEXT NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS monitored_ado_pools (
			id            BIGSERIAL PRIMARY KEY,
			pool_id       BIGINT NOT NULL,
			pool_name     TEXT NOT NULL,
			ado_config_id BIGINT NOT NULL REFERENCES ado_configs(id) ON DELETE CASCADE,
			position      INT NOT NULL DEFAULT 0,
			UNIQUE (ado_config_id, pool_id)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			scopes        JSONB NOT NULL DEFAULT '{}',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migration failed: %w", err)
		}
	}
	return nil
}
