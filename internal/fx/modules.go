package fx

import (
	"context"
	"fmt"

	"aoe-stats/internal/api"
	"aoe-stats/internal/blob"
	"aoe-stats/internal/config"
	"aoe-stats/internal/database"
	"aoe-stats/internal/logger"
	"aoe-stats/internal/repository"
	"aoe-stats/internal/roster"
	"aoe-stats/internal/scheduler"
	"aoe-stats/internal/server"
	"aoe-stats/internal/service"
	"aoe-stats/internal/syncer"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideRoster(cfg *config.Config, logger zerolog.Logger) (*roster.Roster, roster.Denylist, error) {
	r, deny, err := roster.Load(cfg.RosterPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Int("players", r.Len()).Int("denylisted", len(deny)).Msg("roster loaded")
	return r, deny, nil
}

// ProvideBlobStore opens the configured document backend and closes it on stop.
func ProvideBlobStore(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (blob.Store, error) {
	switch cfg.BlobBackend {
	case config.BackendRedis:
		store, err := blob.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return store.Close() }})
		logger.Info().Msg("using redis document store")
		return store, nil
	case config.BackendSQLite:
		db, err := database.Open(cfg.DBPath, logger)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return db.Close() }})
		return blob.NewSQLiteStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func ProvideEngine(cfg *config.Config, client *api.SourceClient, raw *repository.RawArchiveRepository, logger zerolog.Logger) *syncer.Engine {
	opts := syncer.Options{
		Stop:         syncer.DefaultPolicy(cfg.SyncMaxPages),
		FetchDetails: cfg.SyncFetchDetails,
	}
	if cfg.ArchiveRaw {
		opts.Archive = raw
	}
	return syncer.NewEngine(client, opts, logger)
}

func ProvideScheduler(lc fx.Lifecycle, cfg *config.Config, refreshSvc *service.RefreshService, logger zerolog.Logger) (*scheduler.Scheduler, error) {
	s, err := scheduler.New(cfg.SyncSchedule, refreshSvc, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
	return s, nil
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(ProvideRoster),
	fx.Provide(ProvideBlobStore),
	// repos
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewStatsRepository),
	fx.Provide(repository.NewRawArchiveRepository),
	// source client
	fx.Provide(api.NewSourceClient),
	fx.Provide(ProvideEngine),
	// svc
	fx.Provide(service.NewRefreshService),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewStatsService),
	fx.Provide(ProvideScheduler),
	// server
	fx.Provide(server.NewHTTPServer),
	fx.Provide(server.NewRPCServer),
)
