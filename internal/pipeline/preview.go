package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
	"github.com/bowenaidan/fantasy-hoops/internal/names"
	"github.com/bowenaidan/fantasy-hoops/internal/scoring"
)

// Previewer fills each standings row with the day's opponent and what a win would be worth
type Previewer struct {
	feed      Feed
	calc      *scoring.Calculator
	standings StandingsStore
	merger    *Merger
}

// NewPreviewer creates a previewer
func NewPreviewer(feed Feed, calc *scoring.Calculator, standings StandingsStore, merger *Merger) *Previewer {
	return &Previewer{feed: feed, calc: calc, standings: standings, merger: merger}
}

// Preview settles the previous day, clears all opponent fields and writes a
// preview for every row whose team plays on isoDate. It returns the number of
// previews written. A missing scoreboard leaves every row cleared.
func (p *Previewer) Preview(ctx context.Context, isoDate string) (int, error) {
	if _, err := ParseISODate(isoDate); err != nil {
		return 0, err
	}

	if _, err := p.merger.Settle(ctx); err != nil {
		return 0, err
	}

	rows, err := p.standings.ListStandings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read standings: %w", err)
	}
	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = row.Team
	}
	index := names.Index(labels)

	games, err := p.feed.Scoreboard(ctx, isoDate)
	if err != nil {
		log.Warn().Err(err).Str("date", isoDate).Msg("Scoreboard unavailable, clearing previews")
		games = nil
	}
	if len(games) == 0 {
		log.Info().Str("date", isoDate).Msg("No games to preview")
	}

	var poll map[string]int
	if len(games) > 0 {
		if poll, err = p.feed.Rankings(ctx); err != nil {
			log.Warn().Err(err).Msg("AP poll unavailable, using feed ranks only")
			poll = nil
		}
	}

	var previews []models.Preview
	for _, game := range games {
		ranked := scoring.WithPollRanks(game, poll)
		for _, isHome := range []bool{true, false} {
			side, opp := ranked.Away, ranked.Home
			if isHome {
				side, opp = ranked.Home, ranked.Away
			}
			label, ok := index[names.Normalize(side.Name)]
			if !ok {
				continue
			}
			previews = append(previews, models.Preview{
				Team:               label,
				Opponent:           opp.Name,
				OpponentRank:       opp.Rank,
				OpponentConference: opp.Conference,
				PotentialPoints:    p.calc.PointsFor(ranked, isHome),
			})
		}
	}

	if err := p.standings.UpdatePreviews(ctx, previews); err != nil {
		return 0, fmt.Errorf("failed to write previews: %w", err)
	}

	log.Info().Str("date", isoDate).Int("previews", len(previews)).Msg("Opponent previews updated")
	return len(previews), nil
}
