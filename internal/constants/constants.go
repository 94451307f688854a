package constants

import "time"

const (
	DefaultSourceBaseURL   = "https://www.aoe2insights.com"
	DefaultRequestInterval = 1 * time.Second
	DefaultMaxPages        = 5
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	CycleTimeout       = 10 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

// document keys
const (
	MatchesKey     = "matches"
	PlayerStatsKey = "player-stats"
	RawPrefix      = "raw"
)

const (
	PlayerStatsCacheControl = "public, max-age=15"
	MatchesCacheControl     = "no-cache"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	ResultsWindow = 10
)
