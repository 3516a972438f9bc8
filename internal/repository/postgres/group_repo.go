package postgres

import (
	"context"
	"fmt"

	"github.com/xela07ax/runnerdeck/internal/domain"
)

// ListMonitoredGroups возвращает наблюдаемые runner groups в порядке
// конфигурации. Классификация (GroupKind) выполняется здесь, один раз,
// а не при каждом опросе.
func (s *Store) ListMonitoredGroups(ctx context.Context) ([]domain.MonitoredGroup, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, hosted FROM monitored_groups ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list monitored groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.MonitoredGroup
	for rows.Next() {
		var g domain.MonitoredGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Hosted); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan monitored group: %w", err)
		}
		g.Classify()
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ReplaceMonitoredGroups атомарно заменяет выбор наблюдаемых групп.
func (s *Store) ReplaceMonitoredGroups(ctx context.Context, groups []domain.MonitoredGroup) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM monitored_groups`); err != nil {
		return fmt.Errorf("postgres: failed to clear monitored groups: %w", err)
	}

	for i, g := range groups {
		_, err := tx.Exec(ctx, `
			INSERT INTO monitored_groups (id, name, hosted, position) VALUES ($1, $2, $3, $4)`,
			g.ID, g.Name, g.Hosted, i)
		if err != nil {
			return fmt.Errorf("postgres: failed to insert group %d: %w", g.ID, err)
		}
	}

	return tx.Commit(ctx)
}
