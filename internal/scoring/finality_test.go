package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

func intPtr(v int) *int { return &v }

func finalGame() *models.Game {
	return &models.Game{
		Key:  "id:1",
		Home: models.Side{Name: "Kansas", Conference: "big-12", Score: intPtr(80), Winner: true},
		Away: models.Side{Name: "Baylor", Conference: "big-12", Score: intPtr(72)},
		Status: models.StatusSignals{
			CurrentPeriod: "FINAL",
			FinalMessage:  "FINAL",
			GameState:     "final",
			Clock:         "0:00",
		},
	}
}

func TestClassify_Final(t *testing.T) {
	v := Classify(finalGame())
	assert.True(t, v.Final, v.Reason)
	assert.True(t, IsFinal(finalGame()))
}

func TestClassify_Overtime(t *testing.T) {
	g := finalGame()
	g.Status.CurrentPeriod = "FINAL/OT"
	g.Status.FinalMessage = "Final (OT)"
	assert.True(t, IsFinal(g))

	g.Status.CurrentPeriod = "F/2OT"
	g.Status.FinalMessage = ""
	assert.True(t, IsFinal(g))
}

func TestClassify_NotFinal(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *models.Game)
	}{
		{
			name: "tied score",
			mutate: func(g *models.Game) {
				g.Away.Score = intPtr(80)
			},
		},
		{
			name: "winner flag on lower score",
			mutate: func(g *models.Game) {
				g.Home.Winner, g.Away.Winner = false, true
			},
		},
		{
			name: "both winner flags",
			mutate: func(g *models.Game) {
				g.Away.Winner = true
			},
		},
		{
			name: "no winner flag",
			mutate: func(g *models.Game) {
				g.Home.Winner = false
			},
		},
		{
			name: "second half",
			mutate: func(g *models.Game) {
				g.Status.CurrentPeriod = "2nd"
			},
		},
		{
			name: "halftime",
			mutate: func(g *models.Game) {
				g.Status.CurrentPeriod = "HALF"
			},
		},
		{
			name: "final message disagrees",
			mutate: func(g *models.Game) {
				g.Status.FinalMessage = "Delayed"
			},
		},
		{
			name: "live state and running clock",
			mutate: func(g *models.Game) {
				g.Status.GameState = "live"
				g.Status.Clock = "4:12"
			},
		},
		{
			name: "empty state and empty clock",
			mutate: func(g *models.Game) {
				g.Status.GameState = ""
				g.Status.Clock = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := finalGame()
			tt.mutate(g)
			v := Classify(g)
			assert.False(t, v.Final)
			assert.NotEmpty(t, v.Reason)
		})
	}
}

func TestClassify_StateOrClock(t *testing.T) {
	// A finished state is enough when the clock is blank
	g := finalGame()
	g.Status.Clock = ""
	assert.True(t, IsFinal(g))

	// A zero clock is enough when the state is unfamiliar
	g = finalGame()
	g.Status.GameState = "unknown"
	g.Status.Clock = "00:00.0"
	assert.True(t, IsFinal(g))

	for _, state := range []string{"post", "Complete", "COMPLETED", "closed", "status_final"} {
		g = finalGame()
		g.Status.GameState = state
		g.Status.Clock = ""
		assert.True(t, IsFinal(g), state)
	}
}

func TestClassify_MissingScores(t *testing.T) {
	// Without both scores only the status signals decide
	g := finalGame()
	g.Home.Score = nil
	assert.True(t, IsFinal(g))

	g.Home.Winner, g.Away.Winner = false, false
	assert.False(t, IsFinal(g))
}

func TestClassify_Nil(t *testing.T) {
	assert.False(t, IsFinal(nil))
}

func TestClockZero(t *testing.T) {
	assert.True(t, clockZero("0:00"))
	assert.True(t, clockZero("0"))
	assert.True(t, clockZero(" 00:00.0 "))
	assert.False(t, clockZero(""))
	assert.False(t, clockZero(":"))
	assert.False(t, clockZero("0:01"))
}
