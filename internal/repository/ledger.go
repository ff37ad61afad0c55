package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// LedgerRepository stores the processed-game ledger of one season.
// It implements ledger.Store.
type LedgerRepository struct {
	db     *Database
	season string
}

// Season returns the season the ledger is scoped to
func (r *LedgerRepository) Season() string {
	return r.season
}

// Load returns every processed key of the season and the last write time
func (r *LedgerRepository) Load(ctx context.Context) (keys []string, updated time.Time, err error) {
	start := time.Now()
	defer func() { observe("select", "processed_games", start, err) }()

	rows, err := r.db.Pool.Query(ctx, `SELECT game_key FROM processed_games WHERE season = $1`, r.season)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query processed games: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan processed game: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to iterate processed games: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, `SELECT last_updated FROM ledger_state WHERE season = $1`, r.season).Scan(&updated)
	if err == pgx.ErrNoRows {
		return keys, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read ledger state: %w", err)
	}

	return keys, updated, nil
}

// Append inserts keys and stamps the ledger in one transaction
func (r *LedgerRepository) Append(ctx context.Context, keys []string, at time.Time) error {
	start := time.Now()
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, key := range keys {
		if _, err := tx.Exec(ctx, `
			INSERT INTO processed_games (season, game_key, processed_at) VALUES ($1, $2, $3)
			ON CONFLICT (season, game_key) DO NOTHING
		`, r.season, key, at); err != nil {
			observe("insert", "processed_games", start, err)
			return fmt.Errorf("failed to insert processed game %s: %w", key, err)
		}
	}

	if err := r.stamp(ctx, tx, at); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	observe("insert", "processed_games", start, err)
	if err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	return nil
}

// Reset deletes every processed key of the season
func (r *LedgerRepository) Reset(ctx context.Context) error {
	start := time.Now()
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM processed_games WHERE season = $1`, r.season); err != nil {
		observe("delete", "processed_games", start, err)
		return fmt.Errorf("failed to clear processed games: %w", err)
	}
	if err := r.stamp(ctx, tx, time.Now().UTC()); err != nil {
		return err
	}

	err = tx.Commit(ctx)
	observe("delete", "processed_games", start, err)
	if err != nil {
		return fmt.Errorf("failed to commit ledger reset: %w", err)
	}
	return nil
}

func (r *LedgerRepository) stamp(ctx context.Context, tx pgx.Tx, at time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ledger_state (season, last_updated) VALUES ($1, $2)
		ON CONFLICT (season) DO UPDATE SET last_updated = EXCLUDED.last_updated
	`, r.season, at)
	if err != nil {
		return fmt.Errorf("failed to stamp ledger: %w", err)
	}
	return nil
}
