package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// RunRepository persists the sync-run audit log
type RunRepository struct {
	db *Database
}

// RecordRun inserts a run; recording the same run twice is a no-op
func (r *RunRepository) RecordRun(ctx context.Context, run *models.SyncRun) (err error) {
	start := time.Now()
	defer func() { observe("insert", "sync_runs", start, err) }()

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO sync_runs (
			id, kind, iso_date, started_at, finished_at,
			games_seen, games_final, games_scored, status, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`,
		run.ID, run.Kind, run.ISODate, run.StartedAt, run.FinishedAt,
		run.GamesSeen, run.GamesFinal, run.GamesScored, run.Status, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first
func (r *RunRepository) RecentRuns(ctx context.Context, limit int) (runs []*models.SyncRun, err error) {
	start := time.Now()
	defer func() { observe("select", "sync_runs", start, err) }()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, kind, iso_date, started_at, finished_at,
		       games_seen, games_final, games_scored, status, error
		FROM sync_runs
		ORDER BY started_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var run models.SyncRun
		if err := rows.Scan(
			&run.ID, &run.Kind, &run.ISODate, &run.StartedAt, &run.FinishedAt,
			&run.GamesSeen, &run.GamesFinal, &run.GamesScored, &run.Status, &run.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}
