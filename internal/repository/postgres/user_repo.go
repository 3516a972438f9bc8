package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/runnerdeck/internal/domain"
)

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, password_hash, scopes, created_at, updated_at
		FROM users WHERE username = $1`

	u := &domain.User{}
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Scopes, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

// CountUsers нужен для first-run setup: пока пользователей нет,
// открыт только /auth/setup.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count users: %w", err)
	}
	return count, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, scopes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())`

	if _, err := s.pool.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.Scopes); err != nil {
		return fmt.Errorf("postgres: failed to create user: %w", err)
	}
	return nil
}
