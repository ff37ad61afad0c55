package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

func matchup(home, away models.Side) *models.Game {
	return &models.Game{Key: "id:test", Home: home, Away: away}
}

func TestCalculator_Conference(t *testing.T) {
	calc := NewCalculator(testTiers(), DefaultRules())
	g := matchup(
		models.Side{Name: "Duke", Conference: "acc"},
		models.Side{Name: "Virginia", Conference: "ACC"},
	)

	assert.Equal(t, 3.5, calc.PointsFor(g, true))
	assert.Equal(t, 5.0, calc.PointsFor(g, false))

	b := calc.Breakdown(g, true)
	assert.Equal(t, RuleConference, b.Rule)
	assert.Equal(t, models.TierHighMajor, b.WinnerTier)
}

func TestCalculator_ConferenceTable(t *testing.T) {
	calc := NewCalculator(testTiers(), DefaultRules())

	tests := []struct {
		conf string
		home float64
		road float64
	}{
		{"sec", 3.5, 5},
		{"wcc", 2.5, 4},
		{"mvc", 1.5, 2.5},
		{"swac", 1, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.conf, func(t *testing.T) {
			g := matchup(
				models.Side{Name: "A", Conference: tt.conf},
				models.Side{Name: "B", Conference: tt.conf},
			)
			assert.Equal(t, tt.home, calc.PointsFor(g, true))
			assert.Equal(t, tt.road, calc.PointsFor(g, false))
		})
	}
}

func TestCalculator_NonConference(t *testing.T) {
	calc := NewCalculator(testTiers(), DefaultRules())
	g := matchup(
		models.Side{Name: "Kentucky", Conference: "sec"},
		models.Side{Name: "Grambling", Conference: "swac"},
	)

	// High major beating low major earns nothing
	assert.Equal(t, 0.0, calc.PointsFor(g, true))
	// Low major beating high major earns (3 - 0 + 1) * 2
	assert.Equal(t, 8.0, calc.PointsFor(g, false))

	// Same tier, different conference
	g = matchup(
		models.Side{Name: "Duke", Conference: "acc"},
		models.Side{Name: "Kansas", Conference: "big-12"},
	)
	assert.Equal(t, 2.0, calc.PointsFor(g, true))
	assert.Equal(t, RuleNonConference, calc.Breakdown(g, true).Rule)

	// One tier down
	g = matchup(
		models.Side{Name: "Gonzaga", Conference: "wcc"},
		models.Side{Name: "Drake", Conference: "mvc"},
	)
	assert.Equal(t, 0.0, calc.PointsFor(g, true))
	assert.Equal(t, 4.0, calc.PointsFor(g, false))
}

func TestCalculator_BuyGame(t *testing.T) {
	calc := NewCalculator(testTiers(), DefaultRules())

	for _, loserConf := range []string{"sec", "swac", "", "dii"} {
		g := matchup(
			models.Side{Name: "Chaminade", Conference: ""},
			models.Side{Name: "Opponent", Conference: loserConf},
		)
		b := calc.Breakdown(g, true)
		assert.Equal(t, RuleBuyGame, b.Rule, loserConf)
		assert.Equal(t, -4.0, b.Total(), loserConf)
	}

	// Same unresolvable conference on both sides is still a buy game
	g := matchup(
		models.Side{Name: "A", Conference: "dii-east"},
		models.Side{Name: "B", Conference: "dii-east"},
	)
	assert.Equal(t, RuleBuyGame, calc.Breakdown(g, true).Rule)
}

func TestCalculator_RankBonus(t *testing.T) {
	calc := NewCalculator(testTiers(), DefaultRules())

	tests := []struct {
		name  string
		rank  *int
		bonus float64
	}{
		{"top ten", intPtr(7), 5},
		{"rank one", intPtr(1), 5},
		{"rank ten", intPtr(10), 5},
		{"top twenty-five", intPtr(18), 2.5},
		{"rank twenty-five", intPtr(25), 2.5},
		{"unranked", nil, 0},
		{"out of range", intPtr(26), 0},
		{"zero", intPtr(0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := matchup(
				models.Side{Name: "Duke", Conference: "acc"},
				models.Side{Name: "Kansas", Conference: "big-12", Rank: tt.rank},
			)
			b := calc.Breakdown(g, true)
			assert.Equal(t, tt.bonus, b.RankBonus)
			assert.Equal(t, 2+tt.bonus, b.Total())
		})
	}
}

func TestCalculator_RankBonusStacksWithBuyGame(t *testing.T) {
	calc := NewCalculator(testTiers(), DefaultRules())
	g := matchup(
		models.Side{Name: "Upset U", Conference: ""},
		models.Side{Name: "Kansas", Conference: "big-12", Rank: intPtr(3)},
	)
	assert.Equal(t, 1.0, calc.PointsFor(g, true))
}

func TestCalculator_WinnerRankIgnored(t *testing.T) {
	calc := NewCalculator(testTiers(), DefaultRules())
	g := matchup(
		models.Side{Name: "Duke", Conference: "acc", Rank: intPtr(2)},
		models.Side{Name: "Kansas", Conference: "big-12"},
	)
	assert.Equal(t, 2.0, calc.PointsFor(g, true))
}

func TestWithPollRanks(t *testing.T) {
	poll := map[string]int{"michigan st.": 9, "duke": 4}
	g := matchup(
		models.Side{Name: "Michigan State"},
		models.Side{Name: "Duke", Rank: intPtr(6)},
	)

	out := WithPollRanks(g, poll)
	require.NotNil(t, out.Home.Rank)
	assert.Equal(t, 9, *out.Home.Rank)
	// Feed rank wins over the poll
	assert.Equal(t, 6, *out.Away.Rank)
	// Input untouched
	assert.Nil(t, g.Home.Rank)

	assert.Same(t, g, WithPollRanks(g, nil))
}
