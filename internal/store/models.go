package store

import (
	"context"
	"fmt"
)

// UpsertModel inserts a model on first discovery, or updates its mutable
// fields (name, notes, show-in-rankings, tool-calling support) on rediscovery.
// Models are otherwise long-lived (spec.md §3 "Lifecycle").
func (c *Client) UpsertModel(ctx context.Context, m Model) error {
	const q = `
		INSERT INTO models (id, name, vendor, version, notes, show_in_rankings, supports_tool_calling, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			notes = EXCLUDED.notes,
			show_in_rankings = EXCLUDED.show_in_rankings,
			supports_tool_calling = EXCLUDED.supports_tool_calling
	`
	_, err := c.db.ExecContext(ctx, q, m.ID, m.Name, string(m.Vendor), m.Version, m.Notes, m.ShowInRankings, m.SupportsToolCalling)
	if err != nil {
		return fmt.Errorf("upsert model %s: %w", m.ID, err)
	}
	return nil
}

// GetModel fetches a model by id.
func (c *Client) GetModel(ctx context.Context, id string) (Model, error) {
	const q = `
		SELECT id, name, vendor, version, notes, show_in_rankings, supports_tool_calling, created_at
		FROM models WHERE id = $1
	`
	var m Model
	var vendor string
	row := c.db.QueryRowContext(ctx, q, id)
	if err := row.Scan(&m.ID, &m.Name, &vendor, &m.Version, &m.Notes, &m.ShowInRankings, &m.SupportsToolCalling, &m.CreatedAt); err != nil {
		return Model{}, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}
	m.Vendor = Vendor(vendor)
	return m, nil
}

// ListModels returns every known model, optionally restricted to those
// shown in rankings.
func (c *Client) ListModels(ctx context.Context, onlyRanked bool) ([]Model, error) {
	q := `SELECT id, name, vendor, version, notes, show_in_rankings, supports_tool_calling, created_at FROM models`
	if onlyRanked {
		q += ` WHERE show_in_rankings = TRUE`
	}
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []Model
	for rows.Next() {
		var m Model
		var vendor string
		if err := rows.Scan(&m.ID, &m.Name, &vendor, &m.Version, &m.Notes, &m.ShowInRankings, &m.SupportsToolCalling, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Vendor = Vendor(vendor)
		out = append(out, m)
	}
	return out, rows.Err()
}
