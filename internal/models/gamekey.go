package models

import (
	"strconv"

	"github.com/bowenaidan/fantasy-hoops/internal/names"
)

// GameKeyStrategy derives a ledger key from a game, or "" when it cannot
type GameKeyStrategy struct {
	Name   string
	Derive func(*Game) string
}

// GameKeyStrategies are tried in order, strongest first. The name-pair key is a
// last resort: it collides if the same two teams meet twice under one key window.
var GameKeyStrategies = []GameKeyStrategy{
	{Name: "feed_id", Derive: keyFromFeedID},
	{Name: "start_and_teams", Derive: keyFromStartAndTeams},
	{Name: "teams", Derive: keyFromTeams},
}

// DeriveGameKey returns the first non-empty key produced by GameKeyStrategies
func DeriveGameKey(g *Game) string {
	for _, strategy := range GameKeyStrategies {
		if key := strategy.Derive(g); key != "" {
			return key
		}
	}
	return ""
}

func keyFromFeedID(g *Game) string {
	if g.FeedID == "" {
		return ""
	}
	return "id:" + g.FeedID
}

func keyFromStartAndTeams(g *Game) string {
	if g.StartEpoch == 0 {
		return ""
	}
	pair := teamPair(g)
	if pair == "" {
		return ""
	}
	return "t:" + strconv.FormatInt(g.StartEpoch, 10) + "|" + pair
}

func keyFromTeams(g *Game) string {
	pair := teamPair(g)
	if pair == "" {
		return ""
	}
	return "teams:" + pair
}

func teamPair(g *Game) string {
	home, away := names.Normalize(g.Home.Name), names.Normalize(g.Away.Name)
	if home == "" || away == "" {
		return ""
	}
	return home + "@" + away
}
