package models

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/bowenaidan/fantasy-hoops/internal/names"
)

// PollSize is the number of ranked teams in the AP poll
const PollSize = 25

// ErrMalformedRankings is returned for a rankings payload that is not JSON
var ErrMalformedRankings = errors.New("malformed rankings payload")

// PollEntry is one ranked team of a poll
type PollEntry struct {
	Team string `json:"team"`
	Rank int    `json:"rank"`
}

// rankingsShape recognizes one payload layout of the rankings endpoint
type rankingsShape struct {
	Name  string
	Parse func(raw json.RawMessage) ([]PollEntry, bool)
}

// rankingsShapes are tried in order; the first shape that recognizes the payload wins
var rankingsShapes = []rankingsShape{
	{Name: "data", Parse: parseDataRows},
	{Name: "polls", Parse: parsePolls},
	{Name: "array", Parse: parseBareArray},
}

// ParseRankings extracts ranked teams from an AP poll payload. Entries with a
// rank outside 1..25 or without a team are dropped; a missing rank falls back
// to the row position. Team names are normalized.
func ParseRankings(raw []byte) ([]PollEntry, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, ErrMalformedRankings
	}
	for _, shape := range rankingsShapes {
		if entries, ok := shape.Parse(raw); ok {
			return entries, nil
		}
	}
	return nil, nil
}

// RankMap maps normalized team names to poll ranks
func RankMap(entries []PollEntry) map[string]int {
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		if _, exists := m[e.Team]; !exists {
			m[e.Team] = e.Rank
		}
	}
	return m
}

type row map[string]interface{}

func parseDataRows(raw json.RawMessage) ([]PollEntry, bool) {
	var payload struct {
		Data []row `json:"data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Data == nil {
		return nil, false
	}
	return collect(payload.Data,
		[]string{"RANK", "rank", "ranking", "apRank"},
		[]string{"TEAM", "team", "school", "SCHOOL"},
	), true
}

func parsePolls(raw json.RawMessage) ([]PollEntry, bool) {
	var payload struct {
		Polls []row `json:"polls"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Polls == nil {
		return nil, false
	}
	if len(payload.Polls) == 0 {
		return nil, true
	}

	poll := payload.Polls[0]
	for _, p := range payload.Polls {
		label := strings.ToLower(firstString(p, "poll", "pollName"))
		if strings.Contains(label, "ap") {
			poll = p
			break
		}
	}

	var ranks []row
	for _, key := range []string{"ranks", "rankings", "entries"} {
		if list, ok := poll[key].([]interface{}); ok {
			ranks = toRows(list)
			break
		}
	}

	entries := collect(ranks,
		[]string{"rank", "rnk", "current", "AP", "pollRank", "pointsRank", "origRank"},
		[]string{"school", "team", "name", "displayName", "schoolData.name", "rSchool"},
	)
	return entries, true
}

func parseBareArray(raw json.RawMessage) ([]PollEntry, bool) {
	var rows []row
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}
	return collect(rows,
		[]string{"rank", "RANK", "apRank"},
		[]string{"school", "team", "TEAM"},
	), true
}

func collect(rows []row, rankKeys, teamKeys []string) []PollEntry {
	entries := make([]PollEntry, 0, len(rows))
	for idx, r := range rows {
		rank := firstInt(r, rankKeys...)
		if rank == 0 {
			rank = idx + 1
		}
		if rank < 1 || rank > PollSize {
			continue
		}
		team := names.Normalize(firstString(r, teamKeys...))
		if team == "" {
			continue
		}
		entries = append(entries, PollEntry{Team: team, Rank: rank})
	}
	return entries
}

func toRows(list []interface{}) []row {
	rows := make([]row, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

// lookup resolves a key, following one level of "parent.child" nesting
func lookup(r row, key string) interface{} {
	if parent, child, nested := strings.Cut(key, "."); nested {
		if m, ok := r[parent].(map[string]interface{}); ok {
			return m[child]
		}
		return nil
	}
	return r[key]
}

func firstString(r row, keys ...string) string {
	for _, key := range keys {
		if s := strings.TrimSpace(toString(lookup(r, key))); s != "" {
			return s
		}
	}
	return ""
}

func firstInt(r row, keys ...string) int {
	for _, key := range keys {
		if i := toInt(lookup(r, key)); i != 0 {
			return i
		}
	}
	return 0
}

// Helper functions to safely convert interface{} to types
func toInt(v interface{}) int {
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(val))
		return i
	}
	return 0
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	}
	return ""
}
