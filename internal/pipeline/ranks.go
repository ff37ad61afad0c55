package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/names"
)

// RankUpdater copies the AP poll onto the standings rows
type RankUpdater struct {
	feed      Feed
	standings StandingsStore
}

// NewRankUpdater creates a rank updater
func NewRankUpdater(feed Feed, standings StandingsStore) *RankUpdater {
	return &RankUpdater{feed: feed, standings: standings}
}

// Update writes every row's current AP rank, clearing rows that fell out of the
// poll, and returns the number of ranked rows. An unavailable or empty poll
// leaves the standings untouched.
func (u *RankUpdater) Update(ctx context.Context) (int, error) {
	ranks, err := u.feed.Rankings(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("AP poll unavailable, ranks unchanged")
		return 0, nil
	}
	if len(ranks) == 0 {
		log.Info().Msg("No AP poll rankings available")
		return 0, nil
	}

	rows, err := u.standings.ListStandings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read standings: %w", err)
	}

	updates := make(map[string]*int, len(rows))
	ranked := 0
	for _, row := range rows {
		if rank, ok := ranks[names.Normalize(row.Team)]; ok {
			r := rank
			updates[row.Team] = &r
			ranked++
			continue
		}
		updates[row.Team] = nil
	}

	if err := u.standings.UpdateRanks(ctx, updates); err != nil {
		return 0, fmt.Errorf("failed to update ranks: %w", err)
	}

	log.Info().Int("ranked", ranked).Int("rows", len(rows)).Msg("AP ranks updated")
	return ranked, nil
}
