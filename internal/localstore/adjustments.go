package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// AddAdjustment inserts a pending correction
func (s *Store) AddAdjustment(ctx context.Context, adj *models.Adjustment) (err error) {
	start := time.Now()
	defer func() { observe("insert", "buy_game_losses", start, err) }()

	created := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO buy_game_losses (team, points, note, created_at) VALUES (?, ?, ?, ?)`,
		adj.Team, adj.Points, adj.Note, formatTime(created),
	)
	if err != nil {
		return fmt.Errorf("failed to create adjustment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read adjustment id: %w", err)
	}
	adj.ID = id
	adj.CreatedAt = created
	return nil
}

// PendingAdjustments returns corrections not yet applied, oldest first
func (s *Store) PendingAdjustments(ctx context.Context) (adjs []*models.Adjustment, err error) {
	start := time.Now()
	defer func() { observe("select", "buy_game_losses", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team, points, note, created_at
		FROM buy_game_losses
		WHERE applied_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			adj     models.Adjustment
			created string
		)
		if err := rows.Scan(&adj.ID, &adj.Team, &adj.Points, &adj.Note, &created); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adj.CreatedAt = parseTime(created)
		adjs = append(adjs, &adj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate adjustments: %w", err)
	}
	return adjs, nil
}

// ApplyAdjustments adds each correction to its team's points and stamps it
// applied, in one transaction. Corrections already applied are skipped.
func (s *Store) ApplyAdjustments(ctx context.Context, adjs []*models.Adjustment) (applied int, err error) {
	start := time.Now()
	defer func() { observe("update", "buy_game_losses", start, err) }()

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for _, adj := range adjs {
			res, err := tx.ExecContext(ctx,
				`UPDATE buy_game_losses SET applied_at = ? WHERE id = ? AND applied_at IS NULL`, now, adj.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to stamp adjustment %d: %w", adj.ID, err)
			}
			if affected(res) == 0 {
				continue
			}

			res, err = tx.ExecContext(ctx,
				`UPDATE standings SET points = points + ?, updated_at = ? WHERE team = ?`, adj.Points, now, adj.Team,
			)
			if err != nil {
				return fmt.Errorf("failed to apply adjustment %d: %w", adj.ID, err)
			}
			if affected(res) == 0 {
				return fmt.Errorf("no standings row for %q", adj.Team)
			}
			applied++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return applied, nil
}
