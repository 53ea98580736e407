package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RunRecord is the persisted outcome of one pipeline run.
type RunRecord struct {
	ID         string          `json:"id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Summary    json.RawMessage `json:"summary"`
}

type runRow struct {
	ID         string `db:"id"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Summary    string `db:"summary"`
}

func (s *JobStore) SaveRun(ctx context.Context, r RunRecord) error {
	_, err := s.db.X.ExecContext(ctx, s.db.X.Rebind(`
INSERT INTO runs(id, started_at, finished_at, summary) VALUES (?, ?, ?, ?)`),
		r.ID, formatTime(r.StartedAt), formatTime(r.FinishedAt), string(r.Summary))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *JobStore) Runs(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []runRow
	if err := s.db.X.SelectContext(ctx, &rows, s.db.X.Rebind(`
SELECT id, started_at, finished_at, summary FROM runs
ORDER BY started_at DESC
LIMIT ?`), limit); err != nil {
		return nil, err
	}

	out := make([]RunRecord, 0, len(rows))
	for _, r := range rows {
		started, err := parseTime(r.StartedAt)
		if err != nil {
			return nil, err
		}
		finished, err := parseTime(r.FinishedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, RunRecord{ID: r.ID, StartedAt: started, FinishedAt: finished, Summary: json.RawMessage(r.Summary)})
	}
	return out, nil
}
