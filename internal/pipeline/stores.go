package pipeline

import (
	"context"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// Feed is the source of daily games and the AP poll
type Feed interface {
	// Scoreboard returns the games of one yyyy/mm/dd date
	Scoreboard(ctx context.Context, isoDate string) ([]*models.Game, error)
	// Rankings returns the AP poll as normalized team name -> rank
	Rankings(ctx context.Context) (map[string]int, error)
}

// StandingsStore persists the standings table. Team arguments are row labels
// exactly as ListStandings returns them.
type StandingsStore interface {
	ListStandings(ctx context.Context) ([]*models.StandingsRow, error)

	// SeedRoster inserts a zeroed row for every roster team without one and
	// returns how many rows were created
	SeedRoster(ctx context.Context, roster []models.RosterEntry) (int, error)

	// ApplyDeltas adds every delta in one transaction, to points_today when
	// staged and to points when direct
	ApplyDeltas(ctx context.Context, deltas map[string]float64, mode models.MergeMode) error

	// Settle folds points_today into points and zeroes points_today, returning
	// the number of rows that carried staged points
	Settle(ctx context.Context) (int, error)

	// ResetPoints zeroes points and points_today on every row
	ResetPoints(ctx context.Context) error

	// UpdateRanks writes ap_rank for every listed team; a nil rank clears it
	UpdateRanks(ctx context.Context, ranks map[string]*int) error

	// UpdatePreviews clears the opponent fields of every row, then writes previews
	UpdatePreviews(ctx context.Context, previews []models.Preview) error
}

// AdjustmentStore persists manual standings corrections
type AdjustmentStore interface {
	AddAdjustment(ctx context.Context, adj *models.Adjustment) error
	PendingAdjustments(ctx context.Context) ([]*models.Adjustment, error)

	// ApplyAdjustments adds each adjustment's points to its team and stamps it
	// applied, in one transaction. Adjustments already applied are skipped.
	// It returns the number applied.
	ApplyAdjustments(ctx context.Context, adjs []*models.Adjustment) (int, error)
}

// RunLog records pipeline runs for auditing
type RunLog interface {
	RecordRun(ctx context.Context, run *models.SyncRun) error
	RecentRuns(ctx context.Context, limit int) ([]*models.SyncRun, error)
}
