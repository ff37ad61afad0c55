package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/ledger"
)

// ErrInvalidRange is returned for an unparsable or inverted replay range
var ErrInvalidRange = errors.New("invalid replay range")

// ErrStandingsNotEmpty is returned when a replay would add points on top of
// standings that already carry points
var ErrStandingsNotEmpty = errors.New("standings already carry points")

// ReplayOptions tunes a season replay
type ReplayOptions struct {
	// ResetStandings zeroes every row before the first day
	ResetStandings bool

	// KeepStandings adds the replayed points on top of non-zero standings.
	// Without it or ResetStandings such a replay is refused.
	KeepStandings bool
}

// ReplayResult summarizes a replay
type ReplayResult struct {
	Start       string
	End         string
	Days        int
	GamesScored int
	Totals      map[string]float64
	SkippedDays []string
}

// Replayer recomputes a date range from a clean ledger
type Replayer struct {
	engine *Engine
	merger *Merger
	clock  *Clock
}

// NewReplayer creates a replayer
func NewReplayer(engine *Engine, merger *Merger, clock *Clock) *Replayer {
	return &Replayer{engine: engine, merger: merger, clock: clock}
}

// Replay resets the ledger and syncs every date from start to end in ascending
// order, merging and settling each day before the next. end is clamped to today.
// An unparsable or inverted range returns ErrInvalidRange before anything is touched.
// Standings that already carry points return ErrStandingsNotEmpty unless opts
// says to reset or keep them.
func (r *Replayer) Replay(ctx context.Context, start, end string, opts ReplayOptions) (*ReplayResult, error) {
	from, err := ParseISODate(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	to, err := ParseISODate(end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}

	if today := r.clock.Today(); to.After(today) {
		log.Info().Str("end", end).Str("today", FormatISODate(today)).Msg("Clamping replay end to today")
		to = today
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, FormatISODate(to))
	}

	result := &ReplayResult{
		Start:  FormatISODate(from),
		End:    FormatISODate(to),
		Totals: make(map[string]float64),
	}

	if !opts.ResetStandings && !opts.KeepStandings {
		scored, err := r.merger.HasPoints(ctx)
		if err != nil {
			return nil, err
		}
		if scored {
			return nil, fmt.Errorf("%w: replay with reset to recompute, or keep to add on top", ErrStandingsNotEmpty)
		}
	}

	processed, err := ledger.Open(ctx, r.engine.LedgerStore())
	if err != nil {
		return nil, err
	}
	log.Info().Int("keys", processed.Len()).Msg("Resetting processed-game ledger before replay")
	if err := processed.Reset(ctx); err != nil {
		return nil, err
	}

	if opts.ResetStandings {
		if err := r.merger.ResetStandings(ctx); err != nil {
			return nil, err
		}
	}

	err = eachDay(from, to, func(isoDate string) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		day, err := r.engine.SyncDay(ctx, isoDate)
		if err != nil {
			return fmt.Errorf("replay stopped at %s: %w", isoDate, err)
		}
		result.Days++
		result.GamesScored += day.GamesScored
		if day.FeedError != nil {
			result.SkippedDays = append(result.SkippedDays, isoDate)
		}
		for team, delta := range day.Deltas {
			result.Totals[team] += delta
		}

		if _, err := r.merger.Apply(ctx, day.Deltas); err != nil {
			return fmt.Errorf("replay stopped at %s: %w", isoDate, err)
		}
		if err := r.engine.Commit(ctx, day); err != nil {
			return fmt.Errorf("replay stopped at %s: %w", isoDate, err)
		}
		if _, err := r.merger.Settle(ctx); err != nil {
			return fmt.Errorf("replay stopped at %s: %w", isoDate, err)
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	log.Info().
		Str("start", result.Start).
		Str("end", result.End).
		Int("days", result.Days).
		Int("scored", result.GamesScored).
		Int("skipped_days", len(result.SkippedDays)).
		Msg("Replay complete")
	return result, nil
}
