// Package pipeline turns daily scoreboards into standings: it classifies and
// scores final games, guards them with the processed-game ledger, merges the
// resulting deltas into the standings and replays whole seasons.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/ledger"
	"github.com/bowenaidan/fantasy-hoops/internal/metrics"
	"github.com/bowenaidan/fantasy-hoops/internal/models"
	"github.com/bowenaidan/fantasy-hoops/internal/names"
	"github.com/bowenaidan/fantasy-hoops/internal/scoring"
)

// Skip reasons reported to metrics
const (
	skipNotFinal    = "not_final"
	skipProcessed   = "already_processed"
	skipNotRostered = "not_rostered"
	skipNoKey       = "no_key"
)

// DayResult is the outcome of syncing one date
type DayResult struct {
	ISODate string

	// Deltas maps roster team names to the day's summed point delta
	Deltas map[string]float64
	Events []models.ScoreEvent

	GamesSeen   int
	GamesFinal  int
	GamesScored int

	// FeedError is set when the scoreboard could not be fetched; the day was skipped
	FeedError error

	// processed holds the day's scored keys until Engine.Commit
	processed *ledger.Ledger
}

// Engine runs the daily sync
type Engine struct {
	feed   Feed
	calc   *scoring.Calculator
	ledger ledger.Store
	roster map[string]models.RosterEntry
}

// NewEngine creates a sync engine for a roster
func NewEngine(feed Feed, calc *scoring.Calculator, store ledger.Store, roster []models.RosterEntry) *Engine {
	idx := make(map[string]models.RosterEntry, len(roster))
	for _, entry := range roster {
		key := entry.Key()
		if key == "" {
			continue
		}
		if _, exists := idx[key]; !exists {
			idx[key] = entry
		}
	}
	return &Engine{feed: feed, calc: calc, ledger: store, roster: idx}
}

// Calculator returns the engine's point calculator
func (e *Engine) Calculator() *scoring.Calculator {
	return e.calc
}

// LedgerStore returns the store behind the processed-game ledger
func (e *Engine) LedgerStore() ledger.Store {
	return e.ledger
}

// SyncDay scores every unprocessed final game of isoDate won by a roster team.
//
// A feed failure or an empty feed yields an empty result, not an error. The
// scored games are not yet recorded as processed: the caller merges the deltas
// and then calls Commit, so a failed merge leaves them to be scored again.
func (e *Engine) SyncDay(ctx context.Context, isoDate string) (*DayResult, error) {
	if _, err := ParseISODate(isoDate); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &DayResult{
		ISODate: isoDate,
		Deltas:  make(map[string]float64),
	}

	processed, err := ledger.Open(ctx, e.ledger)
	if err != nil {
		return nil, err
	}
	result.processed = processed

	games, err := e.feed.Scoreboard(ctx, isoDate)
	if err != nil {
		log.Warn().Err(err).Str("date", isoDate).Msg("Scoreboard unavailable, skipping day")
		metrics.RecordError("engine", "feed")
		result.FeedError = err
		return result, nil
	}
	if len(games) == 0 {
		log.Info().Str("date", isoDate).Msg("No games on scoreboard")
		return result, nil
	}

	poll := &pollRanks{feed: e.feed}

	for _, game := range games {
		result.GamesSeen++

		verdict := scoring.Classify(game)
		if !verdict.Final {
			log.Debug().
				Str("game", game.Key).
				Str("home", game.Home.Name).
				Str("away", game.Away.Name).
				Str("reason", verdict.Reason).
				Msg("Game not final")
			metrics.RecordSkip(skipNotFinal)
			continue
		}
		result.GamesFinal++

		key := game.Key
		if key == "" {
			key = models.DeriveGameKey(game)
		}
		if key == "" {
			metrics.RecordSkip(skipNoKey)
			continue
		}
		if processed.HasProcessed(key) {
			metrics.RecordSkip(skipProcessed)
			continue
		}

		winner, loser, winnerIsHome, _ := game.Winner()
		entry, rostered := e.roster[names.Normalize(winner.Name)]
		if !rostered {
			metrics.RecordSkip(skipNotRostered)
			continue
		}

		scored := game
		if loser.Rank == nil {
			scored = scoring.WithPollRanks(game, poll.get(ctx))
		}
		b := e.calc.Breakdown(scored, winnerIsHome)
		if b.Rule == scoring.RuleBuyGame {
			log.Debug().
				Str("game", key).
				Str("team", entry.Team).
				Str("conference", winner.Conference).
				Msg("Winner conference unresolvable, applying buy-game penalty")
		}

		delta := b.Total()
		result.Deltas[entry.Team] += delta
		result.Events = append(result.Events, models.ScoreEvent{
			GameKey:    key,
			RosterName: entry.Team,
			Manager:    entry.Manager,
			Delta:      delta,
			Reason:     fmt.Sprintf("%s over %s (%s)", winner.Name, loser.Name, b.Rule),
		})
		metrics.RecordPoints(b.Rule, delta)
		processed.MarkProcessed(key)
		result.GamesScored++

		log.Info().
			Str("game", key).
			Str("team", entry.Team).
			Str("opponent", loser.Name).
			Str("rule", b.Rule).
			Float64("delta", delta).
			Msg("Game scored")
	}

	metrics.RecordDay(result.GamesSeen, result.GamesFinal, result.GamesScored)

	log.Info().
		Str("date", isoDate).
		Int("games", result.GamesSeen).
		Int("final", result.GamesFinal).
		Int("scored", result.GamesScored).
		Dur("duration", time.Since(start)).
		Msg("Day synced")

	return result, nil
}

// Commit records the games scored by day as processed. Call it once the
// day's deltas are merged; until then a re-sync scores the same games again.
func (e *Engine) Commit(ctx context.Context, day *DayResult) error {
	if day == nil || day.processed == nil {
		return nil
	}
	if err := day.processed.Commit(ctx); err != nil {
		metrics.RecordError("engine", "ledger")
		return fmt.Errorf("failed to record processed games for %s: %w", day.ISODate, err)
	}
	metrics.UpdateLedgerSize(day.processed.Len())
	return nil
}

// pollRanks fetches the AP poll on first use, at most once per sync
type pollRanks struct {
	feed    Feed
	fetched bool
	ranks   map[string]int
}

func (p *pollRanks) get(ctx context.Context) map[string]int {
	if p.fetched {
		return p.ranks
	}
	p.fetched = true

	ranks, err := p.feed.Rankings(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("AP poll unavailable, using feed ranks only")
		return nil
	}
	p.ranks = ranks
	return ranks
}
