package scoring

import (
	"github.com/bowenaidan/fantasy-hoops/internal/models"
	"github.com/bowenaidan/fantasy-hoops/internal/names"
)

// ConferencePoints is the value of a conference win at home and on the road
type ConferencePoints struct {
	Home float64 `koanf:"home"`
	Road float64 `koanf:"road"`
}

// Rules holds the league's point tables
type Rules struct {
	// ConferencePoints values same-conference wins by tier
	ConferencePoints map[models.Tier]ConferencePoints

	// NonConferenceStep is multiplied by (loserTier - winnerTier + 1) for cross-conference wins
	NonConferenceStep float64

	// BuyGamePenalty replaces the cross-conference value when the winner's conference is unknown
	BuyGamePenalty float64

	// Rank bonuses for beating a ranked loser
	RankBonusTop10 float64
	RankBonusTop25 float64
}

// DefaultRules returns the league's standard point tables
func DefaultRules() Rules {
	return Rules{
		ConferencePoints: map[models.Tier]ConferencePoints{
			models.TierHighMajor: {Home: 3.5, Road: 5},
			models.TierHighMid:   {Home: 2.5, Road: 4},
			models.TierTrueMid:   {Home: 1.5, Road: 2.5},
			models.TierLowMajor:  {Home: 1, Road: 1.5},
		},
		NonConferenceStep: 2,
		BuyGamePenalty:    -4,
		RankBonusTop10:    5,
		RankBonusTop25:    2.5,
	}
}

// Rule names reported in a Breakdown
const (
	RuleConference    = "conference"
	RuleNonConference = "non_conference"
	RuleBuyGame       = "buy_game"
)

// Breakdown itemizes a point delta
type Breakdown struct {
	Rule       string
	WinnerTier models.Tier
	LoserTier  models.Tier
	Base       float64
	RankBonus  float64
}

// Total returns the full delta
func (b Breakdown) Total() float64 {
	return b.Base + b.RankBonus
}

// Calculator computes the points a win is worth
type Calculator struct {
	tiers *TierResolver
	rules Rules
}

// NewCalculator creates a new calculator
func NewCalculator(tiers *TierResolver, rules Rules) *Calculator {
	return &Calculator{tiers: tiers, rules: rules}
}

// Tiers returns the calculator's tier resolver
func (c *Calculator) Tiers() *TierResolver {
	return c.tiers
}

// PointsFor returns the delta earned by the side named by winnerIsHome.
// Callers only pass final games; the result may be fractional or negative.
func (c *Calculator) PointsFor(g *models.Game, winnerIsHome bool) float64 {
	return c.Breakdown(g, winnerIsHome).Total()
}

// Breakdown returns the itemized delta for the side named by winnerIsHome
func (c *Calculator) Breakdown(g *models.Game, winnerIsHome bool) Breakdown {
	winner, loser := g.Away, g.Home
	if winnerIsHome {
		winner, loser = g.Home, g.Away
	}

	b := Breakdown{
		WinnerTier: c.tiers.TierOf(winner.Conference),
		LoserTier:  c.tiers.TierOf(loser.Conference),
	}

	if sameConference(winner.Conference, loser.Conference) && b.WinnerTier != models.TierUnknown {
		b.Rule = RuleConference
		if pts, ok := c.rules.ConferencePoints[b.WinnerTier]; ok {
			if winnerIsHome {
				b.Base = pts.Home
			} else {
				b.Base = pts.Road
			}
		}
	} else if b.WinnerTier == models.TierUnknown {
		b.Rule = RuleBuyGame
		b.Base = c.rules.BuyGamePenalty
	} else {
		b.Rule = RuleNonConference
		if step := int(b.LoserTier-b.WinnerTier) + 1; step > 0 {
			b.Base = float64(step) * c.rules.NonConferenceStep
		}
	}

	b.RankBonus = c.rankBonus(loser.Rank)
	return b
}

func (c *Calculator) rankBonus(rank *int) float64 {
	switch {
	case rank == nil || *rank < 1 || *rank > 25:
		return 0
	case *rank <= 10:
		return c.rules.RankBonusTop10
	default:
		return c.rules.RankBonusTop25
	}
}

func sameConference(a, b string) bool {
	a, b = conferenceKey(a), conferenceKey(b)
	return a != "" && a == b
}

// WithPollRanks returns a copy of the game where sides without a feed rank take
// their rank from the AP poll (normalized team name -> rank)
func WithPollRanks(g *models.Game, poll map[string]int) *models.Game {
	if len(poll) == 0 {
		return g
	}
	out := *g
	out.Home = fillRank(out.Home, poll)
	out.Away = fillRank(out.Away, poll)
	return &out
}

func fillRank(side models.Side, poll map[string]int) models.Side {
	if side.Rank != nil {
		return side
	}
	if rank, ok := poll[names.Normalize(side.Name)]; ok {
		r := rank
		side.Rank = &r
	}
	return side
}
