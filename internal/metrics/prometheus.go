package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the scoring service

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_api_calls_total",
			Help: "Total number of NCAA API calls",
		},
		[]string{"endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fantasy_hoops_api_call_duration_seconds",
			Help:    "Duration of API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_api_retries_total",
			Help: "Total number of retried NCAA API requests",
		},
		[]string{"endpoint"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fantasy_hoops_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fantasy_hoops_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fantasy_hoops_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fantasy_hoops_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fantasy_hoops_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	// Scoring metrics
	GamesSeenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_games_seen_total",
			Help: "Total number of games read from the scoreboard",
		},
	)

	GamesFinalTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_games_final_total",
			Help: "Total number of games classified final",
		},
	)

	GamesScoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_games_scored_total",
			Help: "Total number of games that produced a roster delta",
		},
	)

	GamesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_games_skipped_total",
			Help: "Total number of games skipped, by reason",
		},
		[]string{"reason"},
	)

	PointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_points_awarded_total",
			Help: "Sum of positive point deltas, by rule",
		},
		[]string{"rule"},
	)

	PenaltiesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_penalties_total",
			Help: "Number of negative point deltas, by rule",
		},
		[]string{"rule"},
	)

	LedgerSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fantasy_hoops_ledger_size",
			Help: "Number of game keys in the processed-game ledger",
		},
	)

	StandingsRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fantasy_hoops_standings_rows",
			Help: "Number of rows in the standings table",
		},
	)

	UnmatchedTeamsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_unmatched_teams_total",
			Help: "Total number of deltas whose team had no standings row",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Scheduler metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fantasy_hoops_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fantasy_hoops_job_duration_seconds",
			Help:    "Duration of scheduled jobs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"job"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fantasy_hoops_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fantasy_hoops_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
	)
)

// RecordAPICall records an API call metric
func RecordAPICall(endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(endpoint, status).Inc()
	APICallDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordAPIRetry records a retried request
func RecordAPIRetry(endpoint string) {
	APIRetriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheOperation records a cache operation duration
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordDay records the game counts of one synced day
func RecordDay(seen, final, scored int) {
	GamesSeenTotal.Add(float64(seen))
	GamesFinalTotal.Add(float64(final))
	GamesScoredTotal.Add(float64(scored))
}

// RecordSkip records a game skipped for the given reason
func RecordSkip(reason string) {
	GamesSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordPoints records a point delta under its rule
func RecordPoints(rule string, delta float64) {
	if delta < 0 {
		PenaltiesTotal.WithLabelValues(rule).Inc()
		return
	}
	PointsAwardedTotal.WithLabelValues(rule).Add(delta)
}

// RecordUnmatched records a delta that found no standings row
func RecordUnmatched() {
	UnmatchedTeamsTotal.Inc()
}

// UpdateLedgerSize sets the processed-game ledger size
func UpdateLedgerSize(n int) {
	LedgerSize.Set(float64(n))
}

// UpdateStandingsRows sets the standings row count
func UpdateStandingsRows(n int) {
	StandingsRows.Set(float64(n))
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

// RecordJob records a scheduled job run
func RecordJob(job, status string, duration float64) {
	JobRunsTotal.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(duration)
}
