package models

import (
	"strings"
	"time"
)

// Tier is the ordinal strength class of a conference
type Tier int

const (
	TierUnknown   Tier = -1
	TierLowMajor  Tier = 0
	TierTrueMid   Tier = 1
	TierHighMid   Tier = 2
	TierHighMajor Tier = 3
)

var tierNames = map[Tier]string{
	TierUnknown:   "unknown",
	TierLowMajor:  "low_major",
	TierTrueMid:   "true_mid",
	TierHighMid:   "high_mid",
	TierHighMajor: "high_major",
}

// String returns the config spelling of the tier
func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return tierNames[TierUnknown]
}

// ParseTier parses a config spelling ("high_major", "highMajor", "high-major")
func ParseTier(s string) (Tier, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	for tier, name := range tierNames {
		if strings.ReplaceAll(name, "_", "") == key {
			return tier, tier != TierUnknown
		}
	}
	return TierUnknown, false
}

// ScoreEvent is the point delta one final game produced for one roster entry
type ScoreEvent struct {
	GameKey    string
	RosterName string
	Manager    string
	Delta      float64
	Reason     string
}

// SyncRun is the audit record of one pipeline run
type SyncRun struct {
	ID          string
	Kind        string // "sync", "replay", "settle", "preview", "ranks", "adjustments"
	ISODate     string
	StartedAt   time.Time
	FinishedAt  time.Time
	GamesSeen   int
	GamesFinal  int
	GamesScored int
	Status      string // "success" or "error"
	Error       string
}
