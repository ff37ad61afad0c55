// Package app wires configuration into a ready pipeline service. Both the
// worker and the manual sync tool start from New.
package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bowenaidan/fantasy-hoops/internal/cache"
	"github.com/bowenaidan/fantasy-hoops/internal/client"
	"github.com/bowenaidan/fantasy-hoops/internal/config"
	"github.com/bowenaidan/fantasy-hoops/internal/ledger"
	"github.com/bowenaidan/fantasy-hoops/internal/localstore"
	"github.com/bowenaidan/fantasy-hoops/internal/models"
	"github.com/bowenaidan/fantasy-hoops/internal/pipeline"
	"github.com/bowenaidan/fantasy-hoops/internal/repository"
)

const redisPrefix = "fantasy_hoops:"

// App holds the wired service and the resources it owns
type App struct {
	Config  *config.Config
	League  *config.League
	Service *pipeline.Service

	Adjustments pipeline.AdjustmentStore
	Runs        pipeline.RunLog

	stores  stores
	db      *repository.Database
	sqlite  *localstore.Store
	redis   *cache.RedisCache
	closers []func()
}

// stores are the persistence ports of one backend
type stores struct {
	standings   pipeline.StandingsStore
	adjustments pipeline.AdjustmentStore
	runs        pipeline.RunLog
	ledger      ledger.Store
}

// New opens the configured store, optional Redis, and the NCAA client, then
// builds the pipeline service. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, league *config.League) (*App, error) {
	a := &App{Config: cfg, League: league}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.openRedis(); err != nil {
		a.Close()
		return nil, err
	}

	ledgerStore := a.stores.ledger
	if cfg.LedgerBackend == config.LedgerBackendRedis {
		if a.redis == nil {
			a.Close()
			return nil, fmt.Errorf("LEDGER_BACKEND=redis requires REDIS_ENABLED=true")
		}
		ledgerStore = ledger.NewRedisStore(a.redis.Client(), redisPrefix, cfg.Season)
		log.Info().Str("season", cfg.Season).Msg("Using Redis processed-game ledger")
	}

	ncaa := client.NewClient(client.Options{
		BaseURL:            cfg.NCAABaseURL,
		Timeout:            cfg.NCAATimeout,
		MinRequestInterval: cfg.NCAAMinRequestInterval,
		MaxRetries:         cfg.NCAAMaxRetries,
	})
	if a.redis != nil {
		ncaa.WithRankingsCache(a.redis, cfg.RankingsTTL())
	}
	log.Info().Str("base_url", cfg.NCAABaseURL).Msg("NCAA client initialized")

	clock := pipeline.NewClock(cfg.Location(), cfg.DayRollover)
	engine := pipeline.NewEngine(ncaa, league.Calculator(), ledgerStore, league.Roster)

	a.Adjustments = a.stores.adjustments
	a.Runs = a.stores.runs
	a.Service = pipeline.NewService(pipeline.Deps{
		Feed:        ncaa,
		Engine:      engine,
		Standings:   a.stores.standings,
		Adjustments: a.stores.adjustments,
		Runs:        a.stores.runs,
		Clock:       clock,
		MergeMode:   models.MergeMode(cfg.MergeMode),
	})

	if _, err := a.Service.SeedRoster(ctx, league.Roster); err != nil {
		a.Close()
		return nil, err
	}

	log.Info().
		Str("store", cfg.StoreDriver).
		Str("ledger", cfg.LedgerBackend).
		Str("merge_mode", cfg.MergeMode).
		Int("roster", len(league.Roster)).
		Str("today", clock.TodayISO()).
		Msg("Pipeline ready")
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		s, err := localstore.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		a.sqlite = s
		a.closers = append(a.closers, func() { s.Close() })
		a.stores = stores{standings: s, adjustments: s, runs: s, ledger: s.Ledger(cfg.Season)}
		return nil

	case config.StoreDriverPostgres:
		db, err := repository.NewDatabase(ctx, repository.Config{
			Host:     cfg.DatabaseHost,
			Port:     strconv.Itoa(cfg.DatabasePort),
			User:     cfg.DatabaseUser,
			Password: cfg.DatabasePassword,
			Database: cfg.DatabaseName,
			SSLMode:  cfg.DatabaseSSLMode,
			Season:   cfg.Season,
		})
		if err != nil {
			return err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		a.stores = stores{standings: db.Standings, adjustments: db.Adjustments, runs: db.Runs, ledger: db.Ledger}
		return nil
	}
	return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// openRedis connects when Redis is enabled. Without a Redis ledger a failed
// connection only disables the rankings cache.
func (a *App) openRedis() error {
	cfg := a.Config
	if !cfg.RedisEnabled {
		return nil
	}

	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   redisPrefix,
	})
	if err != nil {
		if cfg.LedgerBackend == config.LedgerBackendRedis {
			return fmt.Errorf("failed to connect to redis ledger: %w", err)
		}
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		return nil
	}

	a.redis = redisCache
	a.closers = append(a.closers, func() { redisCache.Close() })
	log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis cache connected")
	return nil
}

// Health checks the store and, when connected, Redis
func (a *App) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	switch {
	case a.db != nil:
		if err := a.db.Health(ctx); err != nil {
			return err
		}
	case a.sqlite != nil:
		if err := a.sqlite.Health(ctx); err != nil {
			return err
		}
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis health check failed: %w", err)
		}
	}
	return nil
}

// PublishPoolStats refreshes the connection pool gauges of a Postgres store
func (a *App) PublishPoolStats() {
	if a.db != nil {
		a.db.PoolStats()
	}
}

// Close releases every resource in reverse order of acquisition
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
