package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowenaidan/fantasy-hoops/internal/config"
	"github.com/bowenaidan/fantasy-hoops/internal/pipeline"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  []string
	synced []string

	syncErr   error
	settleErr error
	feedErr   error
	clock     *pipeline.Clock
}

func newFakeRunner() *fakeRunner {
	now := time.Date(2025, 11, 7, 9, 30, 0, 0, time.UTC)
	return &fakeRunner{
		clock: pipeline.NewClock(time.UTC, 3*time.Hour).WithNow(func() time.Time { return now }),
	}
}

func (f *fakeRunner) called(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRunner) SyncToday(ctx context.Context) (*pipeline.DayResult, error) {
	f.called("sync")
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	f.mu.Lock()
	f.synced = append(f.synced, f.clock.TodayISO())
	f.mu.Unlock()
	return &pipeline.DayResult{ISODate: f.clock.TodayISO(), FeedError: f.feedErr}, nil
}

func (f *fakeRunner) Settle(ctx context.Context) (int, error) {
	f.called("settle")
	return 2, f.settleErr
}

func (f *fakeRunner) Preview(ctx context.Context, isoDate string) (int, error) {
	f.called("preview " + isoDate)
	return 1, nil
}

func (f *fakeRunner) UpdateRanks(ctx context.Context) (int, error) {
	f.called("ranks")
	return 3, nil
}

func (f *fakeRunner) Clock() *pipeline.Clock {
	return f.clock
}

func testConfig() *config.Config {
	return &config.Config{
		LeagueTimezone: "America/Chicago",
		SyncCron:       "*/15 0-2,18-23 * * *",
		SettleCron:     "30 3 * * *",
		RanksCron:      "0 12 * * 1",
	}
}

func TestScheduler_StartRegistersJobs(t *testing.T) {
	s := NewScheduler(testConfig(), newFakeRunner())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, 3, s.Entries())
}

func TestScheduler_EmptyScheduleDisablesJob(t *testing.T) {
	cfg := testConfig()
	cfg.RanksCron = ""

	s := NewScheduler(cfg, newFakeRunner())
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, 2, s.Entries())
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.SettleCron = "every night"

	s := NewScheduler(cfg, newFakeRunner())
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settle")
}

func TestScheduler_SettleThenPreviewToday(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(testConfig(), runner)

	require.NoError(t, s.settleAndPreview(context.Background()))
	assert.Equal(t, []string{"settle", "preview 2025/11/07"}, runner.Calls())
}

func TestScheduler_SettleFailureSkipsPreview(t *testing.T) {
	runner := newFakeRunner()
	runner.settleErr = errors.New("store down")
	s := NewScheduler(testConfig(), runner)

	require.Error(t, s.settleAndPreview(context.Background()))
	assert.Equal(t, []string{"settle"}, runner.Calls())
}

func TestScheduler_SyncFeedErrorIsNotAJobFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.feedErr = errors.New("scoreboard 503")
	s := NewScheduler(testConfig(), runner)

	assert.NoError(t, s.syncToday(context.Background()))

	runner.syncErr = errors.New("store down")
	assert.Error(t, s.syncToday(context.Background()))
}

func TestScheduler_ExecuteSkipsAfterCancel(t *testing.T) {
	runner := newFakeRunner()
	s := NewScheduler(testConfig(), runner)

	ctx, cancel := context.WithCancel(context.Background())
	s.execute(ctx, job{name: JobRanks, run: s.refreshRanks})
	cancel()
	s.execute(ctx, job{name: JobRanks, run: s.refreshRanks})

	assert.Equal(t, []string{"ranks"}, runner.Calls())
}

func TestScheduler_DefaultSyncCoversLateFinals(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	schedule, err := cron.ParseStandard(cfg.SyncCron)
	require.NoError(t, err)

	loc := cfg.Location()
	tick := time.Date(2025, 12, 6, 23, 45, 0, 0, loc)
	var lateTicks []time.Time
	for {
		next := schedule.Next(tick)
		if next.Hour() >= 3 {
			tick = next
			break
		}
		lateTicks = append(lateTicks, next)
		tick = next
	}
	require.NotEmpty(t, lateTicks, "no sync after midnight")
	last := lateTicks[len(lateTicks)-1]
	assert.Equal(t, time.Date(2025, 12, 7, 2, 45, 0, 0, loc), last)

	ctx := context.Background()
	runner := newFakeRunner()
	s := NewScheduler(cfg, runner)
	for _, at := range []time.Time{last, tick} {
		at := at
		runner.clock = pipeline.NewClock(loc, cfg.DayRollover).WithNow(func() time.Time { return at })
		require.NoError(t, s.syncToday(ctx))
	}
	assert.Equal(t, []string{"2025/12/06", "2025/12/07"}, runner.synced,
		"a 02:45 tick still syncs the evening before")
}
