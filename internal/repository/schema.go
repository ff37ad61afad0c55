package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// schema is applied in order by EnsureSchema. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS standings (
		team                TEXT PRIMARY KEY,
		manager             TEXT NOT NULL DEFAULT '',
		points              DOUBLE PRECISION NOT NULL DEFAULT 0,
		points_today        DOUBLE PRECISION NOT NULL DEFAULT 0,
		ap_rank             INTEGER,
		opponent            TEXT NOT NULL DEFAULT '',
		opponent_rank       INTEGER,
		opponent_conference TEXT NOT NULL DEFAULT '',
		potential_points    DOUBLE PRECISION NOT NULL DEFAULT 0,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS processed_games (
		season       TEXT NOT NULL,
		game_key     TEXT NOT NULL,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (season, game_key)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_state (
		season       TEXT PRIMARY KEY,
		last_updated TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS buy_game_losses (
		id         BIGSERIAL PRIMARY KEY,
		team       TEXT NOT NULL,
		points     DOUBLE PRECISION NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		applied_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_buy_game_losses_pending
		ON buy_game_losses (id) WHERE applied_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		iso_date     TEXT NOT NULL DEFAULT '',
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ NOT NULL,
		games_seen   INTEGER NOT NULL DEFAULT 0,
		games_final  INTEGER NOT NULL DEFAULT 0,
		games_scored INTEGER NOT NULL DEFAULT 0,
		status       TEXT NOT NULL,
		error        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs (started_at DESC)`,
}

// EnsureSchema creates any missing tables
func (db *Database) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("Database schema ensured")
	return nil
}
