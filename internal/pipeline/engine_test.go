package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowenaidan/fantasy-hoops/internal/ledger"
	"github.com/bowenaidan/fantasy-hoops/internal/models"
)

const gameDay = "2025/11/06"

var testRoster = []models.RosterEntry{
	{Team: "Duke", Manager: "Aidan"},
	{Team: "Grambling", Manager: "Sam"},
	{Team: "Iowa St.", Manager: "Sam"},
}

func duke() models.Side      { return models.Side{Name: "Duke", Conference: "acc"} }
func grambling() models.Side { return models.Side{Name: "Grambling", Conference: "swac"} }
func kansas() models.Side    { return models.Side{Name: "Kansas", Conference: "big-12"} }
func alabama() models.Side   { return models.Side{Name: "Alabama", Conference: "sec"} }

func slate() []*models.Game {
	ranked := kansas()
	ranked.Rank = intPtr(12)
	return []*models.Game{
		finalGame("1", duke(), ranked),
		finalGame("2", grambling(), alabama()),
		finalGame("3", models.Side{Name: "Kentucky", Conference: "sec"}, models.Side{Name: "Bellarmine", Conference: "asun"}),
		liveGame("4", models.Side{Name: "Iowa State", Conference: "big-12"}, kansas()),
	}
}

func TestEngine_SyncDay(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = slate()
	store := ledger.NewMemoryStore()
	engine := NewEngine(feed, testCalculator(), store, testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)

	// Duke: non-conference step 1 (2) plus ranked-12 bonus (2.5)
	// Grambling: low major over high major, step 4 (8)
	assert.Equal(t, map[string]float64{"Duke": 4.5, "Grambling": 8}, day.Deltas)
	assert.Equal(t, 4, day.GamesSeen)
	assert.Equal(t, 3, day.GamesFinal)
	assert.Equal(t, 2, day.GamesScored)
	assert.Len(t, day.Events, 2)
	assert.Nil(t, day.FeedError)
	assert.Zero(t, store.Appends(), "nothing is recorded before the deltas are merged")

	require.NoError(t, engine.Commit(context.Background(), day))
	keys, _, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id:1", "id:2"}, keys)
}

func TestEngine_SyncDayIdempotent(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = slate()
	store := ledger.NewMemoryStore()
	engine := NewEngine(feed, testCalculator(), store, testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	require.NoError(t, engine.Commit(context.Background(), day))

	again, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	require.NoError(t, engine.Commit(context.Background(), again))
	assert.Empty(t, again.Deltas)
	assert.Zero(t, again.GamesScored)
	assert.Equal(t, 1, store.Appends())
}

func TestEngine_LiveGameScoredOnceFinal(t *testing.T) {
	feed := newFakeFeed()
	iowa := models.Side{Name: "Iowa State", Conference: "big-12"}
	feed.days[gameDay] = []*models.Game{liveGame("9", iowa, kansas())}
	engine := NewEngine(feed, testCalculator(), ledger.NewMemoryStore(), testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Empty(t, day.Deltas)

	feed.days[gameDay] = []*models.Game{finalGame("9", iowa, kansas())}
	day, err = engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Iowa St.": 3.5}, day.Deltas, "home conference win scored under the roster label")
}

func TestEngine_FeedError(t *testing.T) {
	feed := newFakeFeed()
	feed.dayErrs[gameDay] = errors.New("503")
	store := ledger.NewMemoryStore()
	engine := NewEngine(feed, testCalculator(), store, testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Empty(t, day.Deltas)
	assert.Error(t, day.FeedError)
	assert.Zero(t, store.Appends())
}

func TestEngine_EmptyFeed(t *testing.T) {
	engine := NewEngine(newFakeFeed(), testCalculator(), ledger.NewMemoryStore(), testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Empty(t, day.Deltas)
	assert.Zero(t, day.GamesSeen)
}

func TestEngine_InvalidDate(t *testing.T) {
	engine := NewEngine(newFakeFeed(), testCalculator(), ledger.NewMemoryStore(), testRoster)

	_, err := engine.SyncDay(context.Background(), "2025-11-06")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

// failingLedger accepts reads and rejects writes
type failingLedger struct{}

func (failingLedger) Load(context.Context) ([]string, time.Time, error) { return nil, time.Time{}, nil }
func (failingLedger) Append(context.Context, []string, time.Time) error {
	return errors.New("disk full")
}
func (failingLedger) Reset(context.Context) error { return nil }

func TestEngine_LedgerCommitFailure(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = slate()
	engine := NewEngine(feed, testCalculator(), failingLedger{}, testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, 2, day.GamesScored)

	err = engine.Commit(context.Background(), day)
	require.Error(t, err)
	assert.Contains(t, err.Error(), gameDay)
}

func TestEngine_UncommittedDayScoresAgain(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = slate()
	store := ledger.NewMemoryStore()
	engine := NewEngine(feed, testCalculator(), store, testRoster)

	_, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)

	again, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Duke": 4.5, "Grambling": 8}, again.Deltas)
	assert.Zero(t, store.Appends())

	assert.NoError(t, engine.Commit(context.Background(), nil))
}

func TestEngine_PollRanksFillUnrankedLoser(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = []*models.Game{
		finalGame("1", grambling(), alabama()),
		finalGame("2", duke(), kansas()),
	}
	feed.poll = map[string]int{"alabama": 4}
	engine := NewEngine(feed, testCalculator(), ledger.NewMemoryStore(), testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, 13.0, day.Deltas["Grambling"])
	assert.Equal(t, 2.0, day.Deltas["Duke"])
	assert.Equal(t, 1, feed.pollCalls)
}

func TestEngine_PollUnavailable(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = []*models.Game{finalGame("1", grambling(), alabama())}
	feed.pollErr = errors.New("timeout")
	engine := NewEngine(feed, testCalculator(), ledger.NewMemoryStore(), testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, 8.0, day.Deltas["Grambling"])
}

func TestEngine_BuyGame(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = []*models.Game{
		finalGame("1", models.Side{Name: "Duke", Conference: "independent"}, kansas()),
	}
	engine := NewEngine(feed, testCalculator(), ledger.NewMemoryStore(), testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, -4.0, day.Deltas["Duke"])
	require.Len(t, day.Events, 1)
	assert.Contains(t, day.Events[0].Reason, "buy_game")
}

func TestEngine_SameTeamTwiceSums(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = []*models.Game{
		finalGame("1", duke(), kansas()),
		finalGame("2", duke(), alabama()),
	}
	engine := NewEngine(feed, testCalculator(), ledger.NewMemoryStore(), testRoster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, 4.0, day.Deltas["Duke"])
	assert.Equal(t, 2, day.GamesScored)
}

func TestEngine_QualifiedSchoolNotCreditedToNamesake(t *testing.T) {
	feed := newFakeFeed()
	feed.days[gameDay] = []*models.Game{
		finalGame("1", models.Side{Name: "Miami (OH)", Conference: "mac"}, models.Side{Name: "Ohio", Conference: "mac"}),
		finalGame("2", models.Side{Name: "Miami (FL)", Conference: "acc"}, duke()),
	}
	roster := []models.RosterEntry{{Team: "Miami (FL)", Manager: "Aidan"}}
	engine := NewEngine(feed, testCalculator(), ledger.NewMemoryStore(), roster)

	day, err := engine.SyncDay(context.Background(), gameDay)
	require.NoError(t, err)
	assert.Equal(t, 1, day.GamesScored)
	assert.Equal(t, map[string]float64{"Miami (FL)": 3.5}, day.Deltas)
}
