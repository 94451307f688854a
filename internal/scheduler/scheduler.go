package scheduler

import (
	"context"
	"fmt"

	"aoe-stats/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Refresher interface {
	Refresh(ctx context.Context) (service.CycleReport, error)
}

// Scheduler triggers sync cycles on a cron schedule. An empty schedule leaves
// it disabled so cycles only run on demand.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	refresh  Refresher
	logger   zerolog.Logger
}

func New(schedule string, refresh Refresher, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{schedule: schedule, refresh: refresh, logger: logger}
	if schedule == "" {
		return s, nil
	}

	cl := cronLogger{logger: logger}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Enabled() bool {
	return s.cron != nil
}

func (s *Scheduler) Start() {
	if s.cron == nil {
		s.logger.Info().Msg("sync schedule disabled")
		return
	}
	s.logger.Info().Str("schedule", s.schedule).Msg("sync scheduler started")
	s.cron.Start()
}

// Stop prevents new runs and waits for a running cycle or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run performs one scheduled cycle.
func (s *Scheduler) Run() {
	report, err := s.refresh.Refresh(context.Background())
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled sync cycle failed")
		return
	}
	s.logger.Info().Str("cycle_id", report.CycleID).Bool("shared", report.Shared).Msg("scheduled sync cycle finished")
}

type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
