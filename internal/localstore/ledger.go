package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LedgerStore is the processed-game ledger of one season. It implements ledger.Store.
type LedgerStore struct {
	store  *Store
	season string
}

// Ledger returns the ledger of season
func (s *Store) Ledger(season string) *LedgerStore {
	return &LedgerStore{store: s, season: season}
}

// Load returns every processed key of the season and the last write time
func (l *LedgerStore) Load(ctx context.Context) (keys []string, updated time.Time, err error) {
	start := time.Now()
	defer func() { observe("select", "processed_games", start, err) }()

	rows, err := l.store.db.QueryContext(ctx, `SELECT game_key FROM processed_games WHERE season = ?`, l.season)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query processed games: %w", err)
	}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return nil, time.Time{}, fmt.Errorf("failed to scan processed game: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, time.Time{}, fmt.Errorf("failed to iterate processed games: %w", err)
	}
	// Release the only connection before the next query
	rows.Close()

	var stamp string
	err = l.store.db.QueryRowContext(ctx, `SELECT last_updated FROM ledger_state WHERE season = ?`, l.season).Scan(&stamp)
	if errors.Is(err, sql.ErrNoRows) {
		return keys, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read ledger state: %w", err)
	}
	return keys, parseTime(stamp), nil
}

// Append inserts keys and stamps the ledger in one transaction
func (l *LedgerStore) Append(ctx context.Context, keys []string, at time.Time) (err error) {
	start := time.Now()
	defer func() { observe("insert", "processed_games", start, err) }()

	return l.store.inTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO processed_games (season, game_key, processed_at) VALUES (?, ?, ?)
				ON CONFLICT (season, game_key) DO NOTHING
			`, l.season, key, formatTime(at)); err != nil {
				return fmt.Errorf("failed to insert processed game %s: %w", key, err)
			}
		}
		return l.stamp(ctx, tx, at)
	})
}

// Reset deletes every processed key of the season
func (l *LedgerStore) Reset(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe("delete", "processed_games", start, err) }()

	return l.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM processed_games WHERE season = ?`, l.season); err != nil {
			return fmt.Errorf("failed to clear processed games: %w", err)
		}
		return l.stamp(ctx, tx, time.Now())
	})
}

func (l *LedgerStore) stamp(ctx context.Context, tx *sql.Tx, at time.Time) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_state (season, last_updated) VALUES (?, ?)
		ON CONFLICT (season) DO UPDATE SET last_updated = excluded.last_updated
	`, l.season, formatTime(at)); err != nil {
		return fmt.Errorf("failed to stamp ledger: %w", err)
	}
	return nil
}
