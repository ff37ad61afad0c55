package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// RecordRun inserts a run; recording the same run twice is a no-op
func (s *Store) RecordRun(ctx context.Context, run *models.SyncRun) (err error) {
	start := time.Now()
	defer func() { observe("insert", "sync_runs", start, err) }()

	if _, err = s.db.ExecContext(ctx, `
		INSERT INTO sync_runs (
			id, kind, iso_date, started_at, finished_at,
			games_seen, games_final, games_scored, status, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`,
		run.ID, run.Kind, run.ISODate, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.GamesSeen, run.GamesFinal, run.GamesScored, run.Status, run.Error,
	); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(ctx context.Context, limit int) (runs []*models.SyncRun, err error) {
	start := time.Now()
	defer func() { observe("select", "sync_runs", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, iso_date, started_at, finished_at,
		       games_seen, games_final, games_scored, status, error
		FROM sync_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			run               models.SyncRun
			started, finished string
		)
		if err := rows.Scan(
			&run.ID, &run.Kind, &run.ISODate, &started, &finished,
			&run.GamesSeen, &run.GamesFinal, &run.GamesScored, &run.Status, &run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}
