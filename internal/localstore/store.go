// Package localstore keeps the standings, ledger, corrections and run log in a
// single SQLite file for single-machine leagues without a Postgres server.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/bowenaidan/fantasy-hoops/internal/metrics"
	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS standings (
		team                TEXT PRIMARY KEY,
		manager             TEXT NOT NULL DEFAULT '',
		points              REAL NOT NULL DEFAULT 0,
		points_today        REAL NOT NULL DEFAULT 0,
		ap_rank             INTEGER,
		opponent            TEXT NOT NULL DEFAULT '',
		opponent_rank       INTEGER,
		opponent_conference TEXT NOT NULL DEFAULT '',
		potential_points    REAL NOT NULL DEFAULT 0,
		updated_at          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS processed_games (
		season       TEXT NOT NULL,
		game_key     TEXT NOT NULL,
		processed_at TEXT NOT NULL,
		PRIMARY KEY (season, game_key)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_state (
		season       TEXT PRIMARY KEY,
		last_updated TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS buy_game_losses (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		team       TEXT NOT NULL,
		points     REAL NOT NULL,
		note       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		applied_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		iso_date     TEXT NOT NULL DEFAULT '',
		started_at   TEXT NOT NULL,
		finished_at  TEXT NOT NULL,
		games_seen   INTEGER NOT NULL DEFAULT 0,
		games_final  INTEGER NOT NULL DEFAULT 0,
		games_scored INTEGER NOT NULL DEFAULT 0,
		status       TEXT NOT NULL,
		error        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs (started_at)`,
}

// Store is a SQLite-backed standings, adjustment and run store
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != MemoryPath {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection: SQLite has a single writer and :memory: is per connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}

	log.Info().Str("path", path).Msg("SQLite store opened")
	return s, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Health pings the database
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite health check failed: %w", err)
	}
	return nil
}

// ListStandings returns every row ordered by team
func (s *Store) ListStandings(ctx context.Context) (rows []*models.StandingsRow, err error) {
	start := time.Now()
	defer func() { observe("select", "standings", start, err) }()

	result, err := s.db.QueryContext(ctx, `
		SELECT team, manager, points, points_today, ap_rank,
		       opponent, opponent_rank, opponent_conference, potential_points, updated_at
		FROM standings
		ORDER BY team
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings: %w", err)
	}
	defer result.Close()

	for result.Next() {
		var (
			row           models.StandingsRow
			apRank, oRank sql.NullInt64
			updated       string
		)
		if err := result.Scan(
			&row.Team, &row.Manager, &row.Points, &row.PointsToday, &apRank,
			&row.Opponent, &oRank, &row.OpponentConference, &row.PotentialPoints, &updated,
		); err != nil {
			return nil, fmt.Errorf("failed to scan standings row: %w", err)
		}
		row.APRank = intOrNil(apRank)
		row.OpponentRank = intOrNil(oRank)
		row.UpdatedAt = parseTime(updated)
		rows = append(rows, &row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate standings: %w", err)
	}
	return rows, nil
}

// SeedRoster inserts a zeroed row for every roster team without one
func (s *Store) SeedRoster(ctx context.Context, roster []models.RosterEntry) (created int, err error) {
	start := time.Now()
	defer func() { observe("insert", "standings", start, err) }()

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for _, entry := range roster {
			team := strings.TrimSpace(entry.Team)
			if team == "" {
				continue
			}
			res, err := tx.ExecContext(ctx, `
				INSERT INTO standings (team, manager, updated_at) VALUES (?, ?, ?)
				ON CONFLICT (team) DO NOTHING
			`, team, strings.TrimSpace(entry.Manager), now)
			if err != nil {
				return fmt.Errorf("failed to seed %s: %w", team, err)
			}
			created += affected(res)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// ApplyDeltas adds every delta in one transaction. A team without a row aborts the whole batch.
func (s *Store) ApplyDeltas(ctx context.Context, deltas map[string]float64, mode models.MergeMode) (err error) {
	start := time.Now()
	defer func() { observe("update", "standings", start, err) }()

	column := "points_today"
	if mode == models.MergeDirect {
		column = "points"
	}
	query := fmt.Sprintf(`UPDATE standings SET %[1]s = %[1]s + ?, updated_at = ? WHERE team = ?`, column)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for team, delta := range deltas {
			res, err := tx.ExecContext(ctx, query, delta, now, team)
			if err != nil {
				return fmt.Errorf("failed to apply delta for %s: %w", team, err)
			}
			if affected(res) == 0 {
				return fmt.Errorf("no standings row for %q", team)
			}
		}
		return nil
	})
}

// Settle folds points_today into points
func (s *Store) Settle(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { observe("update", "standings", start, err) }()

	res, err := s.db.ExecContext(ctx, `
		UPDATE standings
		SET points = points + points_today, points_today = 0, updated_at = ?
		WHERE points_today <> 0
	`, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to settle standings: %w", err)
	}
	return affected(res), nil
}

// ResetPoints zeroes every row
func (s *Store) ResetPoints(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { observe("update", "standings", start, err) }()

	if _, err = s.db.ExecContext(ctx,
		`UPDATE standings SET points = 0, points_today = 0, updated_at = ?`, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("failed to reset standings: %w", err)
	}
	return nil
}

// UpdateRanks writes ap_rank for every listed team
func (s *Store) UpdateRanks(ctx context.Context, ranks map[string]*int) (err error) {
	start := time.Now()
	defer func() { observe("update", "standings", start, err) }()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for team, rank := range ranks {
			if _, err := tx.ExecContext(ctx,
				`UPDATE standings SET ap_rank = ?, updated_at = ? WHERE team = ?`, nullInt(rank), now, team,
			); err != nil {
				return fmt.Errorf("failed to update rank for %s: %w", team, err)
			}
		}
		return nil
	})
}

// UpdatePreviews clears every row's opponent fields, then writes previews
func (s *Store) UpdatePreviews(ctx context.Context, previews []models.Preview) (err error) {
	start := time.Now()
	defer func() { observe("update", "standings", start, err) }()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE standings
			SET opponent = '', opponent_rank = NULL, opponent_conference = '', potential_points = 0
		`); err != nil {
			return fmt.Errorf("failed to clear previews: %w", err)
		}

		now := formatTime(time.Now())
		for _, p := range previews {
			if _, err := tx.ExecContext(ctx, `
				UPDATE standings
				SET opponent = ?, opponent_rank = ?, opponent_conference = ?,
				    potential_points = ?, updated_at = ?
				WHERE team = ?
			`, p.Opponent, nullInt(p.OpponentRank), p.OpponentConference, p.PotentialPoints, now, p.Team); err != nil {
				return fmt.Errorf("failed to write preview for %s: %w", p.Team, err)
			}
		}
		return nil
	})
}

// inTx runs fn in a transaction, committing when fn succeeds
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func observe(operation, table string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDBQuery(operation, "sqlite_"+table, status, time.Since(start).Seconds())
}

func affected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// timeLayout is fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func intOrNil(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
