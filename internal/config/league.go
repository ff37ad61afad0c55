package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
	"github.com/bowenaidan/fantasy-hoops/internal/scoring"
)

// LeagueEnvPrefix prefixes environment overrides of the league file.
// Nested keys use a double underscore: LEAGUE_RANK_BONUS__TOP10=6
const LeagueEnvPrefix = "LEAGUE_"

// leagueFile mirrors the YAML layout of a league config file.
// Pointer fields distinguish "not set" from an explicit zero.
type leagueFile struct {
	Tiers             map[string][]string                 `koanf:"tiers"`
	ConferencePoints  map[string]scoring.ConferencePoints `koanf:"conference_points"`
	NonConferenceStep *float64                            `koanf:"non_conference_step"`
	BuyGamePenalty    *float64                            `koanf:"buy_game_penalty"`
	RankBonus         struct {
		Top10 *float64 `koanf:"top10"`
		Top25 *float64 `koanf:"top25"`
	} `koanf:"rank_bonus"`
	Roster []models.RosterEntry `koanf:"roster"`
}

// League is the resolved scoring configuration of a season
type League struct {
	TierTable map[models.Tier][]string
	Rules     scoring.Rules
	Roster    []models.RosterEntry
}

// DefaultTierTable returns the conference tiers of the original league
func DefaultTierTable() map[models.Tier][]string {
	return map[models.Tier][]string{
		models.TierHighMajor: {"acc", "big-12", "big-ten", "sec", "big-east"},
		models.TierHighMid:   {"mountain-west", "atlantic-10", "wcc", "american"},
		models.TierTrueMid:   {"mvc", "cusa", "ivy-league", "big-west", "socon", "caa", "sun-belt", "mac"},
		models.TierLowMajor: {
			"wac", "big-south", "big-sky", "southland", "horizon", "summit-league", "maac",
			"asun", "ovc", "patriot", "america-east", "swac", "meac", "nec",
		},
	}
}

// DefaultLeague returns the built-in tables with an empty roster
func DefaultLeague() *League {
	return &League{
		TierTable: DefaultTierTable(),
		Rules:     scoring.DefaultRules(),
	}
}

// LoadLeague builds a League by layering defaults, an optional YAML file and
// LEAGUE_ environment variables, in that order of precedence
func LoadLeague(path string) (*League, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load league config %s: %w", path, err)
		}
	}

	envProvider := env.Provider(LeagueEnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, LeagueEnvPrefix))
		if s == "config" {
			// LEAGUE_CONFIG names the file itself
			return ""
		}
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load league environment: %w", err)
	}

	var lf leagueFile
	if err := k.UnmarshalWithConf("", &lf, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode league config: %w", err)
	}

	league, err := lf.resolve()
	if err != nil {
		return nil, err
	}
	if err := league.Validate(); err != nil {
		return nil, fmt.Errorf("invalid league config: %w", err)
	}
	return league, nil
}

func (lf *leagueFile) resolve() (*League, error) {
	league := DefaultLeague()

	if len(lf.Tiers) > 0 {
		table := make(map[models.Tier][]string, len(lf.Tiers))
		for name, codes := range lf.Tiers {
			tier, ok := models.ParseTier(name)
			if !ok {
				return nil, fmt.Errorf("unknown tier %q in tiers", name)
			}
			table[tier] = append(table[tier], codes...)
		}
		league.TierTable = table
	}

	for name, pts := range lf.ConferencePoints {
		tier, ok := models.ParseTier(name)
		if !ok {
			return nil, fmt.Errorf("unknown tier %q in conference_points", name)
		}
		league.Rules.ConferencePoints[tier] = pts
	}

	if lf.NonConferenceStep != nil {
		league.Rules.NonConferenceStep = *lf.NonConferenceStep
	}
	if lf.BuyGamePenalty != nil {
		league.Rules.BuyGamePenalty = *lf.BuyGamePenalty
	}
	if lf.RankBonus.Top10 != nil {
		league.Rules.RankBonusTop10 = *lf.RankBonus.Top10
	}
	if lf.RankBonus.Top25 != nil {
		league.Rules.RankBonusTop25 = *lf.RankBonus.Top25
	}

	league.Roster = lf.Roster
	return league, nil
}

// Validate checks that every roster entry names a team and that no two
// entries normalize to the same key
func (l *League) Validate() error {
	seen := make(map[string]string, len(l.Roster))
	for i, entry := range l.Roster {
		key := entry.Key()
		if key == "" {
			return fmt.Errorf("roster entry %d has no team", i)
		}
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("roster teams %q and %q normalize to the same name", prev, entry.Team)
		}
		seen[key] = entry.Team
	}
	return nil
}

// Resolver builds the conference tier resolver
func (l *League) Resolver() *scoring.TierResolver {
	return scoring.NewTierResolver(l.TierTable)
}

// Calculator builds the point calculator
func (l *League) Calculator() *scoring.Calculator {
	return scoring.NewCalculator(l.Resolver(), l.Rules)
}

// MustLoadLeague loads the league config or exits on error
func MustLoadLeague(path string) *League {
	league, err := LoadLeague(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load league configuration: %v\n", err)
		os.Exit(1)
	}
	return league
}
