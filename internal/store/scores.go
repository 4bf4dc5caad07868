package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// InsertScore appends a Score snapshot. Sentinel scores must carry the
// fixed -1 axis vector (spec.md invariant 1) and numeric scores are clamped
// to [0,100]; both are enforced here rather than trusted from the caller.
func (c *Client) InsertScore(ctx context.Context, s Score) error {
	axes := s.Axes
	stupid := s.StupidScore
	if IsSentinel(stupid) {
		axes = SentinelAxes()
	} else if stupid < 0 {
		stupid = 0
	} else if stupid > 100 {
		stupid = 100
	}
	axesJSON, err := json.Marshal(axes)
	if err != nil {
		return fmt.Errorf("marshal axes: %w", err)
	}

	const q = `
		INSERT INTO scores (id, model_id, ts, batch_timestamp, suite, stupid_score, axes, cusum, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`
	_, err = c.db.ExecContext(ctx, q, s.ID, s.ModelID, s.Ts, s.BatchTimestamp, string(s.Suite), stupid, axesJSON, s.Cusum, s.Note)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// RecentScores returns the most recent `limit` Score rows for a model+suite,
// most recent first, optionally excluding sentinel rows.
func (c *Client) RecentScores(ctx context.Context, modelID string, suite Suite, limit int, excludeSentinels bool) ([]Score, error) {
	q := `
		SELECT id, model_id, ts, batch_timestamp, suite, stupid_score, axes, cusum, note
		FROM scores
		WHERE model_id = $1 AND suite = $2
	`
	if excludeSentinels {
		q += fmt.Sprintf(" AND stupid_score BETWEEN 0 AND 100")
	}
	q += " ORDER BY ts DESC LIMIT $3"

	rows, err := c.db.QueryContext(ctx, q, modelID, string(suite), limit)
	if err != nil {
		return nil, fmt.Errorf("recent scores: %w", err)
	}
	defer rows.Close()

	var out []Score
	for rows.Next() {
		var s Score
		var suiteStr string
		var axesJSON []byte
		if err := rows.Scan(&s.ID, &s.ModelID, &s.Ts, &s.BatchTimestamp, &suiteStr, &s.StupidScore, &axesJSON, &s.Cusum, &s.Note); err != nil {
			return nil, err
		}
		s.Suite = Suite(suiteStr)
		var axes map[string]float64
		if err := json.Unmarshal(axesJSON, &axes); err != nil {
			return nil, fmt.Errorf("unmarshal axes: %w", err)
		}
		s.Axes = NormalizeAxes(axes)
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestScore returns the single most recent score for a model+suite.
func (c *Client) LatestScore(ctx context.Context, modelID string, suite Suite) (Score, bool, error) {
	scores, err := c.RecentScores(ctx, modelID, suite, 1, false)
	if err != nil {
		return Score{}, false, err
	}
	if len(scores) == 0 {
		return Score{}, false, nil
	}
	return scores[0], true, nil
}
