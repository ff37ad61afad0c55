package models

import (
	"strconv"
	"strings"
	"time"
)

// Side identifies one team in a game
type Side struct {
	Name       string // display name as reported by the feed
	Conference string // conference code, e.g. "big-12"
	Rank       *int   // AP rank carried by the feed, nil when unranked
	Score      *int   // nil when the feed has no score yet
	Winner     bool
}

// StatusSignals bundles the redundant textual status fields of a game
type StatusSignals struct {
	CurrentPeriod string // e.g. "FINAL", "2ND", "HALF"
	FinalMessage  string // e.g. "FINAL", "FINAL (OT)" or empty
	GameState     string // e.g. "final", "live", "pre"
	Clock         string // e.g. "0:00", "12:41"
}

// Game represents one men's college basketball game from a daily scoreboard.
// A Game is rebuilt from every fetch and never stored.
type Game struct {
	Key        string
	FeedID     string
	StartEpoch int64
	StartDate  string
	Home       Side
	Away       Side
	Status     StatusSignals
}

// Winner returns the winning side and whether it is the home team.
// ok is false unless exactly one winner flag is set.
func (g *Game) Winner() (winner, loser Side, winnerIsHome, ok bool) {
	switch {
	case g.Home.Winner && !g.Away.Winner:
		return g.Home, g.Away, true, true
	case g.Away.Winner && !g.Home.Winner:
		return g.Away, g.Home, false, true
	default:
		return Side{}, Side{}, false, false
	}
}

// ScoreboardResponse is the payload of the daily scoreboard endpoint
type ScoreboardResponse struct {
	Games []ScoreboardEntry `json:"games"`
}

// ScoreboardEntry wraps a game; some payloads put the game fields at the top level
type ScoreboardEntry struct {
	Game *GameInput `json:"game"`
	GameInput
}

// Input returns the wrapped game, falling back to the entry itself
func (e *ScoreboardEntry) Input() *GameInput {
	if e.Game != nil {
		return e.Game
	}
	return &e.GameInput
}

// GameInput is a scoreboard game as returned by the API
type GameInput struct {
	GameID         string     `json:"gameID"`
	URL            string     `json:"url"`
	StartTimeEpoch string     `json:"startTimeEpoch"`
	StartDate      string     `json:"startDate"`
	GameState      string     `json:"gameState"`
	CurrentPeriod  string     `json:"currentPeriod"`
	FinalMessage   string     `json:"finalMessage"`
	ContestClock   string     `json:"contestClock"`
	Home           *TeamInput `json:"home"`
	Away           *TeamInput `json:"away"`
}

// TeamInput is one side of a scoreboard game
type TeamInput struct {
	Score       string            `json:"score"`
	Rank        string            `json:"rank"`
	Winner      bool              `json:"winner"`
	Alias       string            `json:"alias"`
	Name        string            `json:"name"`
	Names       *TeamNamesInput   `json:"names"`
	Conferences []ConferenceInput `json:"conferences"`
}

// TeamNamesInput holds the name variants the API reports
type TeamNamesInput struct {
	Short string `json:"short"`
	Full  string `json:"full"`
	SEO   string `json:"seo"`
	Char6 string `json:"char6"`
}

// ConferenceInput is a conference membership entry
type ConferenceInput struct {
	ConferenceName string `json:"conferenceName"`
	ConferenceSeo  string `json:"conferenceSeo"`
}

// teamNameStrategies are tried in order; the first non-empty result wins
var teamNameStrategies = []func(*TeamInput) string{
	func(t *TeamInput) string {
		if t.Names == nil {
			return ""
		}
		return t.Names.Short
	},
	func(t *TeamInput) string { return t.Alias },
	func(t *TeamInput) string { return t.Name },
	func(t *TeamInput) string {
		if t.Names == nil {
			return ""
		}
		return t.Names.Full
	},
}

// DisplayName returns the best available display name
func (ti *TeamInput) DisplayName() string {
	for _, strategy := range teamNameStrategies {
		if name := strings.TrimSpace(strategy(ti)); name != "" {
			return name
		}
	}
	return ""
}

// ConferenceCode returns the first conference code, lower-cased
func (ti *TeamInput) ConferenceCode() string {
	if len(ti.Conferences) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(ti.Conferences[0].ConferenceSeo))
}

// ToSide converts TeamInput (from API) to a Side
func (ti *TeamInput) ToSide() Side {
	return Side{
		Name:       ti.DisplayName(),
		Conference: ti.ConferenceCode(),
		Rank:       parseOptionalInt(ti.Rank),
		Score:      parseOptionalInt(ti.Score),
		Winner:     ti.Winner,
	}
}

// ToGame converts GameInput (from API) to Game model.
// ok is false when either side or either team name is missing.
func (gi *GameInput) ToGame() (*Game, bool) {
	if gi.Home == nil || gi.Away == nil {
		return nil, false
	}

	game := &Game{
		FeedID:    feedID(gi),
		StartDate: gi.StartDate,
		Home:      gi.Home.ToSide(),
		Away:      gi.Away.ToSide(),
		Status: StatusSignals{
			CurrentPeriod: strings.TrimSpace(gi.CurrentPeriod),
			FinalMessage:  strings.TrimSpace(gi.FinalMessage),
			GameState:     strings.TrimSpace(gi.GameState),
			Clock:         strings.TrimSpace(gi.ContestClock),
		},
	}
	if game.Home.Name == "" || game.Away.Name == "" {
		return nil, false
	}

	if epoch, err := strconv.ParseInt(strings.TrimSpace(gi.StartTimeEpoch), 10, 64); err == nil && epoch > 0 {
		game.StartEpoch = epoch
	}

	game.Key = DeriveGameKey(game)
	return game, true
}

// StartTime returns the tip-off time, or the zero time when unknown
func (g *Game) StartTime() time.Time {
	if g.StartEpoch == 0 {
		return time.Time{}
	}
	return time.Unix(g.StartEpoch, 0).UTC()
}

// feedID prefers the explicit id and falls back to the id at the end of the game URL
func feedID(gi *GameInput) string {
	if id := strings.TrimSpace(gi.GameID); id != "" {
		return id
	}
	url := strings.TrimRight(strings.TrimSpace(gi.URL), "/")
	if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
		if _, err := strconv.Atoi(url[i+1:]); err == nil {
			return url[i+1:]
		}
	}
	return ""
}

func parseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
