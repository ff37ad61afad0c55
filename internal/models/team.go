package models

import (
	"time"

	"github.com/bowenaidan/fantasy-hoops/internal/names"
)

// RosterEntry is a school drafted by a league manager.
// The roster is supplied by configuration and never written by the scorer.
type RosterEntry struct {
	Team    string `koanf:"team"`
	Manager string `koanf:"manager"`
}

// Key returns the normalized team name
func (r RosterEntry) Key() string {
	return names.Normalize(r.Team)
}

// StandingsRow is one team's line in the standings table
type StandingsRow struct {
	Team        string
	Manager     string
	Points      float64
	PointsToday float64
	APRank      *int

	// Opponent preview for the current day
	Opponent           string
	OpponentRank       *int
	OpponentConference string
	PotentialPoints    float64

	UpdatedAt time.Time
}

// Preview describes a standings row's game on a given day
type Preview struct {
	Team               string
	Opponent           string
	OpponentRank       *int
	OpponentConference string
	PotentialPoints    float64
}

// Adjustment is a manual standings correction, e.g. a buy-game loss
type Adjustment struct {
	ID        int64
	Team      string
	Points    float64
	Note      string
	CreatedAt time.Time
	AppliedAt *time.Time
}

// IsApplied returns true if the adjustment has already been folded into the standings
func (a *Adjustment) IsApplied() bool {
	return a.AppliedAt != nil
}

// MergeMode selects where daily deltas land in the standings
type MergeMode string

const (
	// MergeStaged adds deltas to points_today; a later settle folds them into points
	MergeStaged MergeMode = "staged"
	// MergeDirect adds deltas to points immediately
	MergeDirect MergeMode = "direct"
)

// ManagerTotal is one manager's aggregate across their roster
type ManagerTotal struct {
	Manager     string
	Teams       int
	Points      float64
	PointsToday float64
}
