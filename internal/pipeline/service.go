package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/metrics"
	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// Run kinds recorded in the run log
const (
	RunSync        = "sync"
	RunReplay      = "replay"
	RunSettle      = "settle"
	RunPreview     = "preview"
	RunRanks       = "ranks"
	RunAdjustments = "adjustments"
	RunReset       = "reset"
)

// Service wires the pipeline components together. Mutating operations are
// serialized so that at most one of them touches the store at a time.
type Service struct {
	engine    *Engine
	merger    *Merger
	replayer  *Replayer
	ranks     *RankUpdater
	previewer *Previewer
	standings StandingsStore
	runs      RunLog
	clock     *Clock

	mu sync.Mutex
}

// Deps are the collaborators of a Service
type Deps struct {
	Feed        Feed
	Engine      *Engine
	Standings   StandingsStore
	Adjustments AdjustmentStore
	Runs        RunLog
	Clock       *Clock
	MergeMode   models.MergeMode
}

// NewService builds every pipeline component from deps
func NewService(deps Deps) *Service {
	merger := NewMerger(deps.Standings, deps.Adjustments, deps.MergeMode)
	return &Service{
		engine:    deps.Engine,
		merger:    merger,
		replayer:  NewReplayer(deps.Engine, merger, deps.Clock),
		ranks:     NewRankUpdater(deps.Feed, deps.Standings),
		previewer: NewPreviewer(deps.Feed, deps.Engine.Calculator(), deps.Standings, merger),
		standings: deps.Standings,
		runs:      deps.Runs,
		clock:     deps.Clock,
	}
}

// Clock returns the league clock
func (s *Service) Clock() *Clock {
	return s.clock
}

// SeedRoster creates standings rows for roster teams that have none
func (s *Service) SeedRoster(ctx context.Context, roster []models.RosterEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.standings.SeedRoster(ctx, roster)
	if err != nil {
		return 0, fmt.Errorf("failed to seed roster: %w", err)
	}
	if n > 0 {
		log.Info().Int("rows", n).Msg("Seeded standings rows for roster")
	}
	return n, nil
}

// SyncToday syncs and merges the league's current day
func (s *Service) SyncToday(ctx context.Context) (*DayResult, error) {
	return s.SyncDate(ctx, s.clock.TodayISO())
}

// SyncDate syncs isoDate and merges its deltas into the standings
func (s *Service) SyncDate(ctx context.Context, isoDate string) (*DayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var day *DayResult
	err := s.record(ctx, RunSync, isoDate, func(run *models.SyncRun) error {
		var err error
		day, err = s.engine.SyncDay(ctx, isoDate)
		if err != nil {
			return err
		}
		run.GamesSeen, run.GamesFinal, run.GamesScored = day.GamesSeen, day.GamesFinal, day.GamesScored

		if _, err := s.merger.Apply(ctx, day.Deltas); err != nil {
			return err
		}
		return s.engine.Commit(ctx, day)
	})
	return day, err
}

// Replay recomputes start..end from a clean ledger
func (s *Service) Replay(ctx context.Context, start, end string, opts ReplayOptions) (*ReplayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *ReplayResult
	err := s.record(ctx, RunReplay, start+"-"+end, func(run *models.SyncRun) error {
		var err error
		result, err = s.replayer.Replay(ctx, start, end, opts)
		if result != nil {
			run.GamesScored = result.GamesScored
		}
		return err
	})
	return result, err
}

// Settle folds staged points into the totals
func (s *Service) Settle(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.record(ctx, RunSettle, s.clock.TodayISO(), func(*models.SyncRun) error {
		var err error
		n, err = s.merger.Settle(ctx)
		return err
	})
	return n, err
}

// Preview settles and writes opponent previews for isoDate
func (s *Service) Preview(ctx context.Context, isoDate string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.record(ctx, RunPreview, isoDate, func(*models.SyncRun) error {
		var err error
		n, err = s.previewer.Preview(ctx, isoDate)
		return err
	})
	return n, err
}

// UpdateRanks copies the AP poll onto the standings
func (s *Service) UpdateRanks(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.record(ctx, RunRanks, s.clock.TodayISO(), func(*models.SyncRun) error {
		var err error
		n, err = s.ranks.Update(ctx)
		return err
	})
	return n, err
}

// ApplyAdjustments folds pending manual corrections into the totals
func (s *Service) ApplyAdjustments(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.record(ctx, RunAdjustments, s.clock.TodayISO(), func(*models.SyncRun) error {
		var err error
		n, err = s.merger.ApplyAdjustments(ctx)
		return err
	})
	return n, err
}

// ResetStandings zeroes every row's points
func (s *Service) ResetStandings(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record(ctx, RunReset, s.clock.TodayISO(), func(*models.SyncRun) error {
		return s.merger.ResetStandings(ctx)
	})
}

// Standings returns the standings rows and per-manager totals
func (s *Service) Standings(ctx context.Context) ([]*models.StandingsRow, []models.ManagerTotal, error) {
	rows, err := s.standings.ListStandings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read standings: %w", err)
	}
	return rows, ManagerTotals(rows), nil
}

// record runs fn and writes its audit record. A failed audit write is logged,
// never returned in place of fn's own result.
func (s *Service) record(ctx context.Context, kind, isoDate string, fn func(run *models.SyncRun) error) error {
	run := &models.SyncRun{
		ID:        uuid.NewString(),
		Kind:      kind,
		ISODate:   isoDate,
		StartedAt: time.Now().UTC(),
		Status:    "success",
	}

	err := fn(run)

	run.FinishedAt = time.Now().UTC()
	if err != nil {
		run.Status = "error"
		run.Error = err.Error()
	}
	metrics.RecordSync(kind, run.Status, run.FinishedAt.Sub(run.StartedAt).Seconds())

	if s.runs != nil {
		if rerr := s.runs.RecordRun(ctx, run); rerr != nil {
			log.Warn().Err(rerr).Str("run", run.ID).Str("kind", kind).Msg("Failed to record run")
		}
	}

	if err != nil {
		log.Error().Err(err).Str("run", run.ID).Str("kind", kind).Str("date", isoDate).Msg("Run failed")
	}
	return err
}
