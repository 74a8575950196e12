package store

import (
	"context"
	"fmt"

	"jobsignal-engine/internal/domain"
)

// SyncSources mirrors the configured source registry into the sources table
// so persisted evidence rows stay interpretable next to their weights.
func SyncSources(ctx context.Context, q Querier, srcs []domain.Source) error {
	for _, s := range srcs {
		if _, err := q.ExecContext(ctx, `
INSERT INTO sources (name, tier, weight)
VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET tier = excluded.tier, weight = excluded.weight;`,
			s.Name, s.Tier, s.Weight); err != nil {
			return fmt.Errorf("sync source %q: %w", s.Name, err)
		}
	}
	return nil
}

// ListSources returns the persisted registry ordered by name.
func ListSources(ctx context.Context, q Querier) ([]domain.Source, error) {
	rows, err := q.QueryContext(ctx, `
SELECT id, name, tier, weight FROM sources ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.Source
	for rows.Next() {
		var s domain.Source
		if err := rows.Scan(&s.ID, &s.Name, &s.Tier, &s.Weight); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
