package store

import (
	"context"
	"fmt"
	"time"
)

// CreateToolSession inserts a new ToolSession row in the "running" state.
func (c *Client) CreateToolSession(ctx context.Context, ts ToolSession) error {
	const q = `
		INSERT INTO tool_sessions (id, model_id, task_slug, status, sandbox_id, created_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`
	_, err := c.db.ExecContext(ctx, q, ts.ID, ts.ModelID, ts.TaskSlug, string(ToolSessionRunning), ts.SandboxID)
	if err != nil {
		return fmt.Errorf("create tool session: %w", err)
	}
	return nil
}

// FinalizeToolSession transitions a ToolSession from "running" to a
// terminal state exactly once, writing final counters and the conversation
// artifact. Callers must ensure the session's sandbox has already been
// destroyed (spec.md §3 "Lifecycle").
func (c *Client) FinalizeToolSession(ctx context.Context, ts ToolSession) error {
	if ts.ToolCallsCount != ts.SuccessfulToolCalls+ts.FailedToolCalls {
		return fmt.Errorf("tool call count mismatch: total=%d success=%d failed=%d",
			ts.ToolCallsCount, ts.SuccessfulToolCalls, ts.FailedToolCalls)
	}

	const q = `
		UPDATE tool_sessions SET
			status = $2, turns = $3, total_latency_ms = $4, total_tokens_in = $5, total_tokens_out = $6,
			tool_calls_count = $7, successful_tool_calls = $8, failed_tool_calls = $9,
			passed = $10, final_score = $11, conversation_data = $12, tool_call_history = $13,
			error_log = $14, completed_at = now()
		WHERE id = $1 AND status = 'running'
	`
	res, err := c.db.ExecContext(ctx, q, ts.ID, string(ts.Status), ts.Turns, ts.TotalLatencyMs, ts.TotalTokensIn, ts.TotalTokensOut,
		ts.ToolCallsCount, ts.SuccessfulToolCalls, ts.FailedToolCalls, ts.Passed, ts.FinalScore,
		ts.ConversationData, ts.ToolCallHistory, ts.ErrorLog)
	if err != nil {
		return fmt.Errorf("finalize tool session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s (already terminal or missing)", ErrToolSessionNotFound, ts.ID)
	}
	return nil
}

// InsertToolExecution appends a per-call log row.
func (c *Client) InsertToolExecution(ctx context.Context, e ToolExecution) error {
	const q = `
		INSERT INTO tool_executions (id, session_id, turn_number, tool_name, parameters, result, success, latency_ms, error_message, ts)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`
	_, err := c.db.ExecContext(ctx, q, e.ID, e.SessionID, e.TurnNumber, e.ToolName, e.Parameters, e.Result, e.Success, e.LatencyMs, e.ErrorMessage, e.Ts)
	if err != nil {
		return fmt.Errorf("insert tool execution: %w", err)
	}
	return nil
}

// ListToolExecutions returns every execution row for a session, in turn
// order. Nothing in this module calls it; the tool-session rubric is
// computed from the engine's in-memory call records, not from these rows.
func (c *Client) ListToolExecutions(ctx context.Context, sessionID string) ([]ToolExecution, error) {
	const q = `
		SELECT id, session_id, turn_number, tool_name, parameters, result, success, latency_ms, error_message, ts
		FROM tool_executions WHERE session_id = $1 ORDER BY turn_number ASC, ts ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list tool executions: %w", err)
	}
	defer rows.Close()

	var out []ToolExecution
	for rows.Next() {
		var e ToolExecution
		if err := rows.Scan(&e.ID, &e.SessionID, &e.TurnNumber, &e.ToolName, &e.Parameters, &e.Result, &e.Success, &e.LatencyMs, &e.ErrorMessage, &e.Ts); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MostRecentToolSessionAge returns how long ago the most recent completed
// session for (modelID, taskSlug) finished, used by the scheduler's
// recency-skip rule (spec.md §4.10, testable property S6).
func (c *Client) MostRecentToolSessionAge(ctx context.Context, modelID, taskSlug string, now time.Time) (time.Duration, bool, error) {
	const q = `
		SELECT completed_at FROM tool_sessions
		WHERE model_id = $1 AND task_slug = $2 AND completed_at IS NOT NULL
		ORDER BY completed_at DESC LIMIT 1
	`
	var completedAt time.Time
	err := c.db.QueryRowContext(ctx, q, modelID, taskSlug).Scan(&completedAt)
	if err != nil {
		return 0, false, nil //nolint:nilerr // no prior session is not an error
	}
	return now.Sub(completedAt), true, nil
}
