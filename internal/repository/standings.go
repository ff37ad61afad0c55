package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// StandingsRepository handles standings table operations
type StandingsRepository struct {
	db *Database
}

// ListStandings returns every row ordered by team
func (r *StandingsRepository) ListStandings(ctx context.Context) (rows []*models.StandingsRow, err error) {
	start := time.Now()
	defer func() { observe("select", "standings", start, err) }()

	query := `
		SELECT team, manager, points, points_today, ap_rank,
		       opponent, opponent_rank, opponent_conference, potential_points, updated_at
		FROM standings
		ORDER BY team
	`

	result, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings: %w", err)
	}
	defer result.Close()

	for result.Next() {
		var row models.StandingsRow
		if err := result.Scan(
			&row.Team, &row.Manager, &row.Points, &row.PointsToday, &row.APRank,
			&row.Opponent, &row.OpponentRank, &row.OpponentConference, &row.PotentialPoints,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan standings row: %w", err)
		}
		rows = append(rows, &row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate standings: %w", err)
	}

	return rows, nil
}

// SeedRoster inserts a zeroed row for every roster team without one
func (r *StandingsRepository) SeedRoster(ctx context.Context, roster []models.RosterEntry) (int, error) {
	start := time.Now()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	created := 0
	for _, entry := range roster {
		team := strings.TrimSpace(entry.Team)
		if team == "" {
			continue
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO standings (team, manager) VALUES ($1, $2)
			ON CONFLICT (team) DO NOTHING
		`, team, strings.TrimSpace(entry.Manager))
		if err != nil {
			observe("insert", "standings", start, err)
			return 0, fmt.Errorf("failed to seed %s: %w", team, err)
		}
		created += int(tag.RowsAffected())
	}

	err = tx.Commit(ctx)
	observe("insert", "standings", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to commit roster seed: %w", err)
	}
	return created, nil
}

// ApplyDeltas adds every delta in one transaction. A team without a row aborts the whole batch.
func (r *StandingsRepository) ApplyDeltas(ctx context.Context, deltas map[string]float64, mode models.MergeMode) error {
	column := "points_today"
	if mode == models.MergeDirect {
		column = "points"
	}
	query := fmt.Sprintf(`
		UPDATE standings SET %[1]s = %[1]s + $2, updated_at = NOW()
		WHERE team = $1
	`, column)

	start := time.Now()
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for team, delta := range deltas {
		tag, err := tx.Exec(ctx, query, team, delta)
		if err != nil {
			observe("update", "standings", start, err)
			return fmt.Errorf("failed to apply delta for %s: %w", team, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("no standings row for %q", team)
		}
	}

	err = tx.Commit(ctx)
	observe("update", "standings", start, err)
	if err != nil {
		return fmt.Errorf("failed to commit deltas: %w", err)
	}

	log.Debug().Int("rows", len(deltas)).Str("column", column).Msg("Standings deltas written")
	return nil
}

// Settle folds points_today into points
func (r *StandingsRepository) Settle(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observe("update", "standings", start, err) }()

	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE standings
		SET points = points + points_today, points_today = 0, updated_at = NOW()
		WHERE points_today <> 0
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to settle standings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ResetPoints zeroes every row
func (r *StandingsRepository) ResetPoints(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe("update", "standings", start, err) }()

	_, err = r.db.Pool.Exec(ctx, `UPDATE standings SET points = 0, points_today = 0, updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("failed to reset standings: %w", err)
	}
	return nil
}

// UpdateRanks writes ap_rank for every listed team
func (r *StandingsRepository) UpdateRanks(ctx context.Context, ranks map[string]*int) error {
	start := time.Now()
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for team, rank := range ranks {
		if _, err := tx.Exec(ctx, `UPDATE standings SET ap_rank = $2, updated_at = NOW() WHERE team = $1`, team, rank); err != nil {
			observe("update", "standings", start, err)
			return fmt.Errorf("failed to update rank for %s: %w", team, err)
		}
	}

	err = tx.Commit(ctx)
	observe("update", "standings", start, err)
	if err != nil {
		return fmt.Errorf("failed to commit ranks: %w", err)
	}
	return nil
}

// UpdatePreviews clears every row's opponent fields, then writes previews
func (r *StandingsRepository) UpdatePreviews(ctx context.Context, previews []models.Preview) error {
	start := time.Now()
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE standings
		SET opponent = '', opponent_rank = NULL, opponent_conference = '', potential_points = 0
	`); err != nil {
		observe("update", "standings", start, err)
		return fmt.Errorf("failed to clear previews: %w", err)
	}

	for _, p := range previews {
		if _, err := tx.Exec(ctx, `
			UPDATE standings
			SET opponent = $2, opponent_rank = $3, opponent_conference = $4,
			    potential_points = $5, updated_at = NOW()
			WHERE team = $1
		`, p.Team, p.Opponent, p.OpponentRank, p.OpponentConference, p.PotentialPoints); err != nil {
			observe("update", "standings", start, err)
			return fmt.Errorf("failed to write preview for %s: %w", p.Team, err)
		}
	}

	err = tx.Commit(ctx)
	observe("update", "standings", start, err)
	if err != nil {
		return fmt.Errorf("failed to commit previews: %w", err)
	}
	return nil
}

// GetByTeam retrieves one row by its exact label
func (r *StandingsRepository) GetByTeam(ctx context.Context, team string) (*models.StandingsRow, error) {
	query := `
		SELECT team, manager, points, points_today, ap_rank,
		       opponent, opponent_rank, opponent_conference, potential_points, updated_at
		FROM standings
		WHERE team = $1
	`

	var row models.StandingsRow
	err := r.db.Pool.QueryRow(ctx, query, team).Scan(
		&row.Team, &row.Manager, &row.Points, &row.PointsToday, &row.APRank,
		&row.Opponent, &row.OpponentRank, &row.OpponentConference, &row.PotentialPoints,
		&row.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("standings row not found: team=%s", team)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get standings row: %w", err)
	}

	return &row, nil
}
