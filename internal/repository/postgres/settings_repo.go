package postgres

import (
	"context"
	"fmt"
)

// GetConfig возвращает все настройки как key -> value.
// Значения токенов здесь еще зашифрованы: расшифровка происходит
// лениво, непосредственно перед исходящим вызовом.
func (s *Store) GetConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to load settings: %w", err)
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan setting: %w", err)
		}
		config[key] = value
	}
	return config, rows.Err()
}

// UpsertSetting создает или обновляет одну настройку.
func (s *Store) UpsertSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgres: failed to upsert setting %s: %w", key, err)
	}
	return nil
}
