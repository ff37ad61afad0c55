package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
	"github.com/bowenaidan/fantasy-hoops/internal/scoring"
)

func intPtr(v int) *int { return &v }

func testCalculator() *scoring.Calculator {
	tiers := scoring.NewTierResolver(map[models.Tier][]string{
		models.TierHighMajor: {"acc", "big-12", "big-ten", "sec", "big-east"},
		models.TierHighMid:   {"mountain-west", "atlantic-10", "wcc", "american"},
		models.TierTrueMid:   {"mvc", "cusa", "ivy-league", "big-west"},
		models.TierLowMajor:  {"horizon", "swac", "meac", "nec"},
	})
	return scoring.NewCalculator(tiers, scoring.DefaultRules())
}

// finalGame builds a final game won by the home side
func finalGame(id string, home, away models.Side) *models.Game {
	g := &models.Game{
		FeedID: id,
		Home:   home,
		Away:   away,
		Status: models.StatusSignals{
			CurrentPeriod: "FINAL",
			FinalMessage:  "FINAL",
			GameState:     "final",
			Clock:         "0:00",
		},
	}
	g.Home.Winner = true
	g.Home.Score = intPtr(80)
	g.Away.Score = intPtr(70)
	g.Key = models.DeriveGameKey(g)
	return g
}

// liveGame builds a game in progress
func liveGame(id string, home, away models.Side) *models.Game {
	g := &models.Game{
		FeedID: id,
		Home:   home,
		Away:   away,
		Status: models.StatusSignals{CurrentPeriod: "2ND", GameState: "live", Clock: "8:12"},
	}
	g.Home.Score = intPtr(40)
	g.Away.Score = intPtr(38)
	g.Key = models.DeriveGameKey(g)
	return g
}

// fakeFeed serves canned scoreboards per date
type fakeFeed struct {
	mu        sync.Mutex
	days      map[string][]*models.Game
	dayErrs   map[string]error
	poll      map[string]int
	pollErr   error
	requested []string
	pollCalls int
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{days: make(map[string][]*models.Game), dayErrs: make(map[string]error)}
}

func (f *fakeFeed) Scoreboard(_ context.Context, isoDate string) ([]*models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, isoDate)
	if err := f.dayErrs[isoDate]; err != nil {
		return nil, err
	}
	return f.days[isoDate], nil
}

func (f *fakeFeed) Rankings(_ context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	return f.poll, f.pollErr
}

// memStandings is an in-memory StandingsStore and AdjustmentStore
type memStandings struct {
	mu          sync.Mutex
	rows        map[string]*models.StandingsRow
	adjustments []*models.Adjustment
	nextID      int64
	applyErr    error
}

func newMemStandings(roster ...models.RosterEntry) *memStandings {
	m := &memStandings{rows: make(map[string]*models.StandingsRow)}
	for _, entry := range roster {
		m.rows[entry.Team] = &models.StandingsRow{Team: entry.Team, Manager: entry.Manager}
	}
	return m
}

func (m *memStandings) row(team string) models.StandingsRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[team]; ok {
		return *r
	}
	return models.StandingsRow{}
}

func (m *memStandings) ListStandings(_ context.Context) ([]*models.StandingsRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.StandingsRow, 0, len(m.rows))
	for _, r := range m.rows {
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Team < out[j].Team })
	return out, nil
}

func (m *memStandings) SeedRoster(_ context.Context, roster []models.RosterEntry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, entry := range roster {
		if _, ok := m.rows[entry.Team]; ok {
			continue
		}
		m.rows[entry.Team] = &models.StandingsRow{Team: entry.Team, Manager: entry.Manager}
		n++
	}
	return n, nil
}

func (m *memStandings) ApplyDeltas(_ context.Context, deltas map[string]float64, mode models.MergeMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	for team := range deltas {
		if _, ok := m.rows[team]; !ok {
			return errors.New("unknown row " + team)
		}
	}
	for team, delta := range deltas {
		if mode == models.MergeDirect {
			m.rows[team].Points += delta
		} else {
			m.rows[team].PointsToday += delta
		}
	}
	return nil
}

func (m *memStandings) Settle(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.rows {
		if r.PointsToday != 0 {
			r.Points += r.PointsToday
			r.PointsToday = 0
			n++
		}
	}
	return n, nil
}

func (m *memStandings) ResetPoints(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		r.Points, r.PointsToday = 0, 0
	}
	return nil
}

func (m *memStandings) UpdateRanks(_ context.Context, ranks map[string]*int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for team, rank := range ranks {
		if r, ok := m.rows[team]; ok {
			r.APRank = rank
		}
	}
	return nil
}

func (m *memStandings) UpdatePreviews(_ context.Context, previews []models.Preview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		r.Opponent, r.OpponentRank, r.OpponentConference, r.PotentialPoints = "", nil, "", 0
	}
	for _, p := range previews {
		if r, ok := m.rows[p.Team]; ok {
			r.Opponent = p.Opponent
			r.OpponentRank = p.OpponentRank
			r.OpponentConference = p.OpponentConference
			r.PotentialPoints = p.PotentialPoints
		}
	}
	return nil
}

func (m *memStandings) AddAdjustment(_ context.Context, adj *models.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	adj.ID = m.nextID
	adj.CreatedAt = time.Now()
	cp := *adj
	m.adjustments = append(m.adjustments, &cp)
	return nil
}

func (m *memStandings) PendingAdjustments(_ context.Context) ([]*models.Adjustment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Adjustment
	for _, a := range m.adjustments {
		if !a.IsApplied() {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStandings) ApplyAdjustments(_ context.Context, adjs []*models.Adjustment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	now := time.Now()
	for _, adj := range adjs {
		for _, stored := range m.adjustments {
			if stored.ID != adj.ID || stored.IsApplied() {
				continue
			}
			r, ok := m.rows[adj.Team]
			if !ok {
				return n, errors.New("unknown row " + adj.Team)
			}
			r.Points += adj.Points
			stored.AppliedAt = &now
			n++
		}
	}
	return n, nil
}

// memRuns is an in-memory RunLog
type memRuns struct {
	mu   sync.Mutex
	runs []*models.SyncRun
}

func (m *memRuns) RecordRun(_ context.Context, run *models.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs = append(m.runs, &cp)
	return nil
}

func (m *memRuns) RecentRuns(_ context.Context, limit int) ([]*models.SyncRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.SyncRun, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}
