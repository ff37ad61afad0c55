package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// AdjustmentRepository handles manual buy-game-loss corrections
type AdjustmentRepository struct {
	db *Database
}

// AddAdjustment inserts a pending correction
func (r *AdjustmentRepository) AddAdjustment(ctx context.Context, adj *models.Adjustment) (err error) {
	start := time.Now()
	defer func() { observe("insert", "buy_game_losses", start, err) }()

	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO buy_game_losses (team, points, note) VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, adj.Team, adj.Points, adj.Note).Scan(&adj.ID, &adj.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create adjustment: %w", err)
	}

	log.Debug().
		Int64("id", adj.ID).
		Str("team", adj.Team).
		Float64("points", adj.Points).
		Msg("Adjustment created")

	return nil
}

// PendingAdjustments returns corrections not yet applied, oldest first
func (r *AdjustmentRepository) PendingAdjustments(ctx context.Context) (adjs []*models.Adjustment, err error) {
	start := time.Now()
	defer func() { observe("select", "buy_game_losses", start, err) }()

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, team, points, note, created_at, applied_at
		FROM buy_game_losses
		WHERE applied_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var adj models.Adjustment
		if err := rows.Scan(&adj.ID, &adj.Team, &adj.Points, &adj.Note, &adj.CreatedAt, &adj.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adjs = append(adjs, &adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adjustments: %w", err)
	}

	return adjs, nil
}

// ApplyAdjustments adds each correction to its team's points and stamps it
// applied, in one transaction. Corrections already applied are skipped.
func (r *AdjustmentRepository) ApplyAdjustments(ctx context.Context, adjs []*models.Adjustment) (int, error) {
	start := time.Now()
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	applied := 0
	for _, adj := range adjs {
		tag, err := tx.Exec(ctx, `
			UPDATE buy_game_losses SET applied_at = NOW()
			WHERE id = $1 AND applied_at IS NULL
		`, adj.ID)
		if err != nil {
			observe("update", "buy_game_losses", start, err)
			return 0, fmt.Errorf("failed to stamp adjustment %d: %w", adj.ID, err)
		}
		if tag.RowsAffected() == 0 {
			continue
		}

		tag, err = tx.Exec(ctx, `
			UPDATE standings SET points = points + $2, updated_at = NOW()
			WHERE team = $1
		`, adj.Team, adj.Points)
		if err != nil {
			observe("update", "buy_game_losses", start, err)
			return 0, fmt.Errorf("failed to apply adjustment %d: %w", adj.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, fmt.Errorf("no standings row for %q", adj.Team)
		}
		applied++
	}

	err = tx.Commit(ctx)
	observe("update", "buy_game_losses", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to commit adjustments: %w", err)
	}
	return applied, nil
}
