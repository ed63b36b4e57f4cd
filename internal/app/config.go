package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/catalog-metrics/internal/data/db"
	"github.com/yungbote/catalog-metrics/internal/jobs/lock"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics/steps"
	"github.com/yungbote/catalog-metrics/internal/observability"
	"github.com/yungbote/catalog-metrics/internal/platform/envutil"
)

type Config struct {
	LogMode string

	DB db.Options

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// LockBackend is redis, postgres or none (in-process only).
	LockBackend string
	LockTTL     time.Duration

	BatchLimit      int
	StaleAfter      time.Duration
	RefreshSchedule string
	BackfillDelay   time.Duration

	OpsAddr string

	// AutoProvision migrates tables and indexes at startup, then queues a lookup backfill.
	AutoProvision bool

	Otel observability.OtelConfig
}

// LoadConfig reads the environment, first merging a .env file when one exists.
// Variables already set in the process win over the file.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		LogMode: envutil.String("LOG_MODE", "development"),
		DB: db.Options{
			Driver:           envutil.String("DB_DRIVER", db.DriverPostgres),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "catalog"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", "catalog-metrics.db"),
			SlowThreshold:    envutil.Duration("DB_SLOW_THRESHOLD", time.Second),
		},
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		RedisPassword:   envutil.String("REDIS_PASSWORD", ""),
		RedisDB:         envutil.Int("REDIS_DB", 0),
		LockBackend:     strings.ToLower(envutil.String("LOCK_BACKEND", "")),
		LockTTL:         envutil.Duration("LOCK_TTL", 10*time.Minute),
		BatchLimit:      envutil.Int("METRICS_BATCH_LIMIT", steps.DefaultBatchLimit),
		StaleAfter:      envutil.Duration("METRICS_STALE_AFTER", steps.DefaultStaleAfter),
		RefreshSchedule: envutil.String("METRICS_SCHEDULE", "@every 1m"),
		BackfillDelay:   envutil.Duration("BACKFILL_DELAY", 5*time.Second),
		OpsAddr:         envutil.String("OPS_ADDR", ":9090"),
		AutoProvision:   envutil.Bool("AUTO_PROVISION", true),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "catalog-metrics"),
			Environment: envutil.String("OTEL_ENVIRONMENT", envutil.String("ENVIRONMENT", "development")),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float64("OTEL_SAMPLER_RATIO", 1),
		},
	}
	if cfg.LockBackend == "" {
		cfg.LockBackend = defaultLockBackend(cfg)
	}
	return cfg
}

// defaultLockBackend prefers redis when configured, then postgres advisory locks.
// A sqlite database is single-process, so in-process locking is enough there.
func defaultLockBackend(cfg Config) string {
	switch {
	case cfg.RedisAddr != "":
		return lock.BackendRedis
	case strings.EqualFold(cfg.DB.Driver, db.DriverSQLite):
		return lock.BackendLocal
	default:
		return lock.BackendPostgres
	}
}
