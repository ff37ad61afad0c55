package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // league time zone on hosts without zoneinfo

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Ledger backends
const (
	LedgerBackendStore = "store"
	LedgerBackendRedis = "redis"
)

// Merge modes
const (
	MergeModeStaged = "staged"
	MergeModeDirect = "direct"
)

// Config holds all application configuration
type Config struct {
	// NCAA public API
	NCAABaseURL            string        `envconfig:"NCAA_API_BASE_URL" default:"https://ncaa-api.henrygd.me"`
	NCAATimeout            time.Duration `envconfig:"NCAA_API_TIMEOUT" default:"30s"`
	NCAAMinRequestInterval time.Duration `envconfig:"NCAA_MIN_REQUEST_INTERVAL" default:"250ms"`
	NCAAMaxRetries         int           `envconfig:"NCAA_MAX_RETRIES" default:"0"` // feed failures skip the day by default

	// Standings store
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"fantasy_hoops.db"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"fantasy_hoops"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"fantasy_hoops"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis
	RedisEnabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Ledger
	LedgerBackend string `envconfig:"LEDGER_BACKEND" default:"store"`

	// League
	LeagueConfig   string        `envconfig:"LEAGUE_CONFIG" default:""`
	Season         string        `envconfig:"SEASON" default:"2025-26"`
	SeasonStart    string        `envconfig:"SEASON_START" default:"2025/11/03"`
	LeagueTimezone string        `envconfig:"LEAGUE_TIMEZONE" default:"America/Chicago"`
	DayRollover    time.Duration `envconfig:"DAY_ROLLOVER" default:"3h"`
	MergeMode      string        `envconfig:"MERGE_MODE" default:"staged"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`
	SyncCron           string `envconfig:"SYNC_CRON" default:"*/15 0-2,18-23 * * *"` // evening plus the rollover window
	SettleCron         string `envconfig:"SETTLE_CRON" default:"30 3 * * *"`
	RanksCron          string `envconfig:"RANKS_CRON" default:"0 12 * * 1"`

	// Caching TTL (in seconds)
	CacheTTLRankings int `envconfig:"CACHE_TTL_RANKINGS" default:"3600"` // 1 hour

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabasePassword == "" && c.IsProduction() {
			return fmt.Errorf("DATABASE_PASSWORD is required in production")
		}
	case StoreDriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverSQLite, c.StoreDriver)
	}

	switch c.LedgerBackend {
	case LedgerBackendStore:
	case LedgerBackendRedis:
		if !c.RedisEnabled {
			return fmt.Errorf("LEDGER_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", LedgerBackendStore, LedgerBackendRedis, c.LedgerBackend)
	}

	if c.MergeMode != MergeModeStaged && c.MergeMode != MergeModeDirect {
		return fmt.Errorf("MERGE_MODE must be %q or %q, got %q", MergeModeStaged, MergeModeDirect, c.MergeMode)
	}

	if strings.TrimSpace(c.Season) == "" {
		return fmt.Errorf("SEASON is required")
	}

	if _, err := time.LoadLocation(c.LeagueTimezone); err != nil {
		return fmt.Errorf("LEAGUE_TIMEZONE %q: %w", c.LeagueTimezone, err)
	}

	if c.DayRollover < 0 || c.DayRollover >= 24*time.Hour {
		return fmt.Errorf("DAY_ROLLOVER must be within [0, 24h), got %s", c.DayRollover)
	}

	if c.NCAAMaxRetries < 0 {
		return fmt.Errorf("NCAA_MAX_RETRIES must not be negative")
	}

	return nil
}

// Location returns the league time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.LeagueTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// RankingsTTL returns the AP poll cache lifetime
func (c *Config) RankingsTTL() time.Duration {
	return time.Duration(c.CacheTTLRankings) * time.Second
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
