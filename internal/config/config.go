package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"aoe-stats/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	ServerPort string

	BlobBackend string
	DBPath      string
	RedisURL    string

	SourceBaseURL         string
	SourceRequestInterval time.Duration

	SyncMaxPages     int
	SyncFetchDetails bool
	SyncSchedule     string
	ArchiveRaw       bool

	RosterPath string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	interval, err := time.ParseDuration(getEnv("SOURCE_REQUEST_INTERVAL", constants.DefaultRequestInterval.String()))
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_REQUEST_INTERVAL: %w", err)
	}

	maxPages, err := strconv.Atoi(getEnv("SYNC_MAX_PAGES", strconv.Itoa(constants.DefaultMaxPages)))
	if err != nil || maxPages < 1 {
		return nil, fmt.Errorf("invalid SYNC_MAX_PAGES: must be a positive integer")
	}

	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		BlobBackend:           getEnv("BLOB_BACKEND", BackendSQLite),
		DBPath:                getEnv("DB_PATH", "aoe-stats.db"),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SourceBaseURL:         getEnv("SOURCE_BASE_URL", constants.DefaultSourceBaseURL),
		SourceRequestInterval: interval,
		SyncMaxPages:          maxPages,
		SyncFetchDetails:      getEnvBool("SYNC_FETCH_DETAILS", false),
		SyncSchedule:          getEnv("SYNC_SCHEDULE", ""),
		ArchiveRaw:            getEnvBool("ARCHIVE_RAW", false),
		RosterPath:            getEnv("ROSTER_PATH", ""),
	}

	if cfg.BlobBackend != BackendSQLite && cfg.BlobBackend != BackendRedis {
		return nil, fmt.Errorf("BLOB_BACKEND must be %q or %q, got %q", BackendSQLite, BackendRedis, cfg.BlobBackend)
	}

	logger.Info().
		Str("server_port", cfg.ServerPort).
		Str("blob_backend", cfg.BlobBackend).
		Str("source_base_url", cfg.SourceBaseURL).
		Dur("source_request_interval", cfg.SourceRequestInterval).
		Int("sync_max_pages", cfg.SyncMaxPages).
		Bool("sync_fetch_details", cfg.SyncFetchDetails).
		Str("sync_schedule", cfg.SyncSchedule).
		Bool("archive_raw", cfg.ArchiveRaw).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

var Module = fx.Provide(Load)
