package main

import (
	"context"
	"fmt"
	"net/http"

	"aoe-stats/internal/config"
	"aoe-stats/internal/constants"
	fxmodules "aoe-stats/internal/fx"
	"aoe-stats/internal/middleware"
	"aoe-stats/internal/scheduler"
	"aoe-stats/internal/server"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	httpServer *server.HTTPServer,
	rpcServer *server.RPCServer,
	_ *scheduler.Scheduler,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	mux := http.NewServeMux()
	httpServer.Register(mux)

	rpcPath, rpcHandler := rpcServer.Handler()
	mux.Handle(rpcPath, rpcHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Last-Modified"},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           middleware.RequestID(logger)(c.Handler(mux)),
		ReadHeaderTimeout: constants.RequestTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
