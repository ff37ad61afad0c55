package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/metrics"
	"github.com/bowenaidan/fantasy-hoops/internal/models"
	"github.com/bowenaidan/fantasy-hoops/internal/names"
)

// ApplyResult reports how a delta map landed in the standings
type ApplyResult struct {
	Applied   int
	Unmatched []string
}

// Merger writes scoring results into the standings store
type Merger struct {
	standings   StandingsStore
	adjustments AdjustmentStore
	mode        models.MergeMode
}

// NewMerger creates a merger. adjustments may be nil when manual corrections are not used.
func NewMerger(standings StandingsStore, adjustments AdjustmentStore, mode models.MergeMode) *Merger {
	if mode == "" {
		mode = models.MergeStaged
	}
	return &Merger{standings: standings, adjustments: adjustments, mode: mode}
}

// Mode returns the merge mode
func (m *Merger) Mode() models.MergeMode {
	return m.mode
}

// HasPoints reports whether any standings row carries points, settled or staged
func (m *Merger) HasPoints(ctx context.Context) (bool, error) {
	rows, err := m.standings.ListStandings(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read standings: %w", err)
	}
	for _, row := range rows {
		if row.Points != 0 || row.PointsToday != 0 {
			return true, nil
		}
	}
	return false, nil
}

// Apply adds each delta to the standings row whose normalized team name matches.
// Unmatched names are logged and reported, not fatal.
func (m *Merger) Apply(ctx context.Context, deltas map[string]float64) (*ApplyResult, error) {
	result := &ApplyResult{}
	if len(deltas) == 0 {
		return result, nil
	}

	index, err := m.index(ctx)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]float64, len(deltas))
	for team, delta := range deltas {
		label, ok := index[names.Normalize(team)]
		if !ok {
			log.Warn().Str("team", team).Float64("delta", delta).Msg("No standings row for team")
			metrics.RecordUnmatched()
			result.Unmatched = append(result.Unmatched, team)
			continue
		}
		resolved[label] += delta
	}
	sort.Strings(result.Unmatched)

	if len(resolved) == 0 {
		return result, nil
	}
	if err := m.standings.ApplyDeltas(ctx, resolved, m.mode); err != nil {
		return nil, fmt.Errorf("failed to apply deltas: %w", err)
	}
	result.Applied = len(resolved)

	log.Info().
		Int("rows", result.Applied).
		Int("unmatched", len(result.Unmatched)).
		Str("mode", string(m.mode)).
		Msg("Deltas applied")
	return result, nil
}

// Settle folds staged points into the cumulative totals. Settling twice in a
// row changes nothing the second time.
func (m *Merger) Settle(ctx context.Context) (int, error) {
	n, err := m.standings.Settle(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to settle standings: %w", err)
	}
	log.Info().Int("rows", n).Msg("Standings settled")
	return n, nil
}

// ResetStandings zeroes every row's points
func (m *Merger) ResetStandings(ctx context.Context) error {
	if err := m.standings.ResetPoints(ctx); err != nil {
		return fmt.Errorf("failed to reset standings: %w", err)
	}
	log.Info().Msg("Standings reset to zero")
	return nil
}

// ApplyAdjustments folds pending manual corrections into the cumulative totals.
// Each correction is applied at most once; corrections for unknown teams stay pending.
func (m *Merger) ApplyAdjustments(ctx context.Context) (int, error) {
	if m.adjustments == nil {
		return 0, nil
	}

	pending, err := m.adjustments.PendingAdjustments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list adjustments: %w", err)
	}
	if len(pending) == 0 {
		log.Info().Msg("No pending adjustments")
		return 0, nil
	}

	index, err := m.index(ctx)
	if err != nil {
		return 0, err
	}

	ready := make([]*models.Adjustment, 0, len(pending))
	for _, adj := range pending {
		if adj.Points == 0 {
			continue
		}
		label, ok := index[names.Normalize(adj.Team)]
		if !ok {
			log.Warn().Int64("id", adj.ID).Str("team", adj.Team).Msg("Adjustment team not in standings, leaving pending")
			metrics.RecordUnmatched()
			continue
		}
		resolved := *adj
		resolved.Team = label
		ready = append(ready, &resolved)
	}
	if len(ready) == 0 {
		return 0, nil
	}

	n, err := m.adjustments.ApplyAdjustments(ctx, ready)
	if err != nil {
		return 0, fmt.Errorf("failed to apply adjustments: %w", err)
	}
	log.Info().Int("applied", n).Msg("Adjustments applied")
	return n, nil
}

// index maps normalized team names to standings row labels
func (m *Merger) index(ctx context.Context) (map[string]string, error) {
	rows, err := m.standings.ListStandings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read standings: %w", err)
	}
	metrics.UpdateStandingsRows(len(rows))

	labels := make([]string, len(rows))
	for i, row := range rows {
		labels[i] = row.Team
	}
	return names.Index(labels), nil
}
