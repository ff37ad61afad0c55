package scoring

import (
	"strings"

	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

// finishedStates is the game-state vocabulary that counts as finished
var finishedStates = map[string]bool{
	"final":        true,
	"post":         true,
	"complete":     true,
	"completed":    true,
	"closed":       true,
	"status_final": true,
}

// Verdict explains a finality decision
type Verdict struct {
	Final  bool
	Reason string
}

// IsFinal reports whether a game is final and safe to score
func IsFinal(g *models.Game) bool {
	return Classify(g).Final
}

// Classify checks every finality signal of a game. All signals must agree;
// any disagreement yields a non-final verdict naming the first failed check.
//
// Score check (skipped when either score is missing): the scores differ and the
// single winner flag sits on the higher score. Status check (always): exactly one
// winner flag, a finished period label, an empty or final final-message, and
// either a finished game state or a zero clock.
func Classify(g *models.Game) Verdict {
	if g == nil {
		return Verdict{Reason: "no game"}
	}

	home, away := g.Home, g.Away
	if home.Winner == away.Winner {
		if home.Winner {
			return Verdict{Reason: "both winner flags set"}
		}
		return Verdict{Reason: "no winner flag set"}
	}

	if home.Score != nil && away.Score != nil {
		switch {
		case *home.Score == *away.Score:
			return Verdict{Reason: "tied score"}
		case (*home.Score > *away.Score) != home.Winner:
			return Verdict{Reason: "winner flag on lower score"}
		}
	}

	status := g.Status
	if !periodFinished(status.CurrentPeriod) {
		return Verdict{Reason: "period not finished: " + status.CurrentPeriod}
	}
	if !finalMessageOK(status.FinalMessage) {
		return Verdict{Reason: "final message not final: " + status.FinalMessage}
	}
	if !finishedStates[strings.ToLower(status.GameState)] && !clockZero(status.Clock) {
		return Verdict{Reason: "game state not finished and clock running: " + status.GameState + " " + status.Clock}
	}

	return Verdict{Final: true, Reason: "final"}
}

func periodFinished(period string) bool {
	p := strings.ToUpper(strings.TrimSpace(period))
	return strings.HasPrefix(p, "FINAL") || p == "F" || strings.HasPrefix(p, "F/")
}

func finalMessageOK(msg string) bool {
	m := strings.ToUpper(strings.TrimSpace(msg))
	return m == "" || strings.HasPrefix(m, "FINAL")
}

// clockZero accepts "0:00", "00:00.0", "0" and the like
func clockZero(clock string) bool {
	digits := 0
	for _, r := range strings.TrimSpace(clock) {
		switch {
		case r == '0':
			digits++
		case r == ':' || r == '.':
		default:
			return false
		}
	}
	return digits > 0
}
