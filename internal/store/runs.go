package store

import (
	"context"
	"fmt"
)

// InsertRunWithMetric appends a Run and its single Metric row inside one
// transaction, enforcing invariant 2 of spec.md §3 ("a Run has at most one
// Metric row") structurally — the metrics table's primary key is run_id.
func (c *Client) InsertRunWithMetric(ctx context.Context, r Run, m Metric) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertRun = `
		INSERT INTO runs (id, model_id, task_id, ts, temp_seed, tokens_in, tokens_out, latency_ms, attempts, passed, artifact_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`
	if _, err := tx.ExecContext(ctx, insertRun, r.ID, r.ModelID, r.TaskID, r.Ts, r.TempSeed, r.TokensIn, r.TokensOut, r.LatencyMs, r.Attempts, r.Passed, r.ArtifactHash); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	const insertMetric = `
		INSERT INTO metrics (run_id, correctness, complexity, code_quality, efficiency, stability, edge_cases, debugging)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	if _, err := tx.ExecContext(ctx, insertMetric, r.ID, m.Correctness, m.Complexity, m.CodeQuality, m.Efficiency, m.Stability, m.EdgeCases, m.Debugging); err != nil {
		return fmt.Errorf("insert metric: %w", err)
	}

	return tx.Commit()
}

// RunWithMetric pairs a Run with its Metric for bulk reads.
type RunWithMetric struct {
	Run    Run
	Metric Metric
}

// ListRunsForTask returns every run+metric pair recorded for a (model, task)
// pair, most recent first.
func (c *Client) ListRunsForTask(ctx context.Context, modelID, taskID string) ([]RunWithMetric, error) {
	const q = `
		SELECT r.id, r.model_id, r.task_id, r.ts, r.temp_seed, r.tokens_in, r.tokens_out, r.latency_ms, r.attempts, r.passed, r.artifact_hash,
		       m.correctness, m.complexity, m.code_quality, m.efficiency, m.stability, m.edge_cases, m.debugging
		FROM runs r
		JOIN metrics m ON m.run_id = r.id
		WHERE r.model_id = $1 AND r.task_id = $2
		ORDER BY r.ts DESC
	`
	rows, err := c.db.QueryContext(ctx, q, modelID, taskID)
	if err != nil {
		return nil, fmt.Errorf("list runs for task: %w", err)
	}
	defer rows.Close()

	var out []RunWithMetric
	for rows.Next() {
		var rm RunWithMetric
		if err := rows.Scan(
			&rm.Run.ID, &rm.Run.ModelID, &rm.Run.TaskID, &rm.Run.Ts, &rm.Run.TempSeed, &rm.Run.TokensIn, &rm.Run.TokensOut, &rm.Run.LatencyMs, &rm.Run.Attempts, &rm.Run.Passed, &rm.Run.ArtifactHash,
			&rm.Metric.Correctness, &rm.Metric.Complexity, &rm.Metric.CodeQuality, &rm.Metric.Efficiency, &rm.Metric.Stability, &rm.Metric.EdgeCases, &rm.Metric.Debugging,
		); err != nil {
			return nil, err
		}
		rm.Metric.RunID = rm.Run.ID
		out = append(out, rm)
	}
	return out, rows.Err()
}
