package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/config"
	"github.com/bowenaidan/fantasy-hoops/internal/metrics"
	"github.com/bowenaidan/fantasy-hoops/internal/pipeline"
)

// Job names reported to metrics
const (
	JobSync   = "sync"
	JobSettle = "settle"
	JobRanks  = "ranks"
)

// Runner is the part of the pipeline the scheduler drives
type Runner interface {
	SyncToday(ctx context.Context) (*pipeline.DayResult, error)
	Settle(ctx context.Context) (int, error)
	Preview(ctx context.Context, isoDate string) (int, error)
	UpdateRanks(ctx context.Context) (int, error)
	Clock() *pipeline.Clock
}

// Scheduler runs the league's recurring jobs:
// - sync today's scoreboard through the evening
// - settle the day overnight and preview the new one
// - refresh AP ranks once a week
type Scheduler struct {
	cfg    *config.Config
	runner Runner
	cron   *cron.Cron
}

// NewScheduler creates a new scheduler instance. Cron expressions are read in
// the league time zone; a job still running when its next tick fires is skipped.
func NewScheduler(cfg *config.Config, runner Runner) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		cron: cron.New(
			cron.WithLocation(cfg.Location()),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
	}
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) error
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: JobSync, spec: s.cfg.SyncCron, run: s.syncToday},
		{name: JobSettle, spec: s.cfg.SettleCron, run: s.settleAndPreview},
		{name: JobRanks, spec: s.cfg.RanksCron, run: s.refreshRanks},
	}
}

// Start registers every job with a non-empty schedule and starts the cron runner
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	for _, j := range s.jobs() {
		if j.spec == "" {
			log.Info().Str("job", j.name).Msg("Job disabled, no schedule")
			continue
		}
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() { s.execute(ctx, j) }); err != nil {
			return fmt.Errorf("failed to schedule %s job %q: %w", j.name, j.spec, err)
		}
		log.Info().
			Str("job", j.name).
			Str("schedule", j.spec).
			Msg("Job scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// Entries returns the number of scheduled jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) execute(ctx context.Context, j job) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := j.run(ctx)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		log.Error().Err(err).Str("job", j.name).Dur("duration", duration).Msg("Scheduled job failed")
	} else {
		log.Info().Str("job", j.name).Dur("duration", duration).Msg("Scheduled job complete")
	}
	metrics.RecordJob(j.name, status, duration.Seconds())
}

func (s *Scheduler) syncToday(ctx context.Context) error {
	day, err := s.runner.SyncToday(ctx)
	if err != nil {
		return err
	}
	if day.FeedError != nil {
		log.Warn().Err(day.FeedError).Str("date", day.ISODate).Msg("Scoreboard unavailable, will retry next tick")
	}
	return nil
}

// settleAndPreview folds yesterday's staged points into the totals, then
// previews the day that just started
func (s *Scheduler) settleAndPreview(ctx context.Context) error {
	if _, err := s.runner.Settle(ctx); err != nil {
		return err
	}
	_, err := s.runner.Preview(ctx, s.runner.Clock().TodayISO())
	return err
}

func (s *Scheduler) refreshRanks(ctx context.Context) error {
	_, err := s.runner.UpdateRanks(ctx)
	return err
}

// cronLogger routes cron's own messages to zerolog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
