package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/runnerdeck/internal/domain"
)

var ErrNotFound = errors.New("postgres: not found")

// ListADOConfigs возвращает все организации Azure DevOps вместе
// с их наблюдаемыми пулами, в алфавитном порядке организаций.
func (s *Store) ListADOConfigs(ctx context.Context) ([]domain.ADOConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organization_name, pat_token, created_at, updated_at
		FROM ado_configs ORDER BY organization_name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list ado configs: %w", err)
	}
	defer rows.Close()

	var configs []domain.ADOConfig
	for rows.Next() {
		var c domain.ADOConfig
		if err := rows.Scan(&c.ID, &c.Organization, &c.EncryptedPAT, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan ado config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range configs {
		pools, err := s.listPools(ctx, configs[i].ID)
		if err != nil {
			return nil, err
		}
		configs[i].MonitoredPools = pools
	}
	return configs, nil
}

// GetADOConfig загружает одну организацию с пулами.
func (s *Store) GetADOConfig(ctx context.Context, id int64) (*domain.ADOConfig, error) {
	c := &domain.ADOConfig{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, organization_name, pat_token, created_at, updated_at
		FROM ado_configs WHERE id = $1`, id).
		Scan(&c.ID, &c.Organization, &c.EncryptedPAT, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("postgres: failed to get ado config: %w", err)
	}

	pools, err := s.listPools(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.MonitoredPools = pools
	return c, nil
}

// CreateADOConfig регистрирует новую организацию. Имя организации
// уникально: повторная регистрация — ошибка уровня вызова.
func (s *Store) CreateADOConfig(ctx context.Context, organization, encryptedPAT string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO ado_configs (organization_name, pat_token, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW()) RETURNING id`,
		organization, encryptedPAT).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to create ado config: %w", err)
	}
	return id, nil
}

// UpdateADOPAT обновляет PAT организации.
func (s *Store) UpdateADOPAT(ctx context.Context, id int64, encryptedPAT string) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE ado_configs SET pat_token = $1, updated_at = NOW() WHERE id = $2`,
		encryptedPAT, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update ado pat: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteADOConfig удаляет организацию; пулы уходят каскадом.
func (s *Store) DeleteADOConfig(ctx context.Context, id int64) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM ado_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete ado config: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceMonitoredPools атомарно заменяет выбор наблюдаемых пулов организации.
func (s *Store) ReplaceMonitoredPools(ctx context.Context, configID int64, pools []domain.ADOPool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM monitored_ado_pools WHERE ado_config_id = $1`, configID); err != nil {
		return fmt.Errorf("postgres: failed to clear pools: %w", err)
	}

	for i, p := range pools {
		_, err := tx.Exec(ctx, `
			INSERT INTO monitored_ado_pools (pool_id, pool_name, ado_config_id, position)
			VALUES ($1, $2, $3, $4)`,
			p.PoolID, p.Name, configID, i)
		if err != nil {
			return fmt.Errorf("postgres: failed to insert pool %d: %w", p.PoolID, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) listPools(ctx context.Context, configID int64) ([]domain.ADOPool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT pool_id, pool_name FROM monitored_ado_pools
		WHERE ado_config_id = $1 ORDER BY position, pool_id`, configID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list pools: %w", err)
	}
	defer rows.Close()

	var pools []domain.ADOPool
	for rows.Next() {
		var p domain.ADOPool
		if err := rows.Scan(&p.PoolID, &p.Name); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	return pools, rows.Err()
}
