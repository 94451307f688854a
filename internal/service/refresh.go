package service

import (
	"context"
	"fmt"
	"time"

	"aoe-stats/internal/constants"
	"aoe-stats/internal/repository"
	"aoe-stats/internal/roster"
	"aoe-stats/internal/stats"
	"aoe-stats/internal/syncer"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type CycleReport struct {
	CycleID       string        `json:"cycle_id"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	PlayersSynced int           `json:"players_synced"`
	PlayersFailed int           `json:"players_failed"`
	MatchesAdded  int           `json:"matches_added"`
	MatchesTotal  int           `json:"matches_total"`
	Excluded      int           `json:"excluded"`
	// true when another trigger's cycle was joined instead of starting one
	Shared bool `json:"shared"`
}

// RefreshService runs sync cycles: load the store, discover new matches,
// save, recompute and publish statistics.
type RefreshService struct {
	engine    *syncer.Engine
	matchRepo *repository.MatchRepository
	statsRepo *repository.StatsRepository
	roster    *roster.Roster
	denylist  roster.Denylist
	logger    zerolog.Logger

	group singleflight.Group
}

func NewRefreshService(engine *syncer.Engine, matchRepo *repository.MatchRepository, statsRepo *repository.StatsRepository, r *roster.Roster, deny roster.Denylist, logger zerolog.Logger) *RefreshService {
	return &RefreshService{
		engine:    engine,
		matchRepo: matchRepo,
		statsRepo: statsRepo,
		roster:    r,
		denylist:  deny,
		logger:    logger,
	}
}

// Refresh runs one cycle. Triggers that arrive while a cycle is running wait
// for it and share its report. The cycle is detached from the caller's
// cancellation so a dropped HTTP request cannot leave it half done.
func (s *RefreshService) Refresh(ctx context.Context) (CycleReport, error) {
	ch := s.group.DoChan("cycle", func() (any, error) {
		cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.CycleTimeout)
		defer cancel()
		return s.runCycle(cycleCtx)
	})

	select {
	case res := <-ch:
		report, _ := res.Val.(CycleReport)
		report.Shared = res.Shared
		return report, res.Err
	case <-ctx.Done():
		return CycleReport{}, ctx.Err()
	}
}

func (s *RefreshService) runCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{StartedAt: time.Now()}
	id, err := gonanoid.New()
	if err != nil {
		return report, fmt.Errorf("failed to generate cycle id: %w", err)
	}
	report.CycleID = id

	log := s.logger.With().Str("cycle_id", id).Logger()
	log.Info().Int("players", s.roster.Len()).Msg("sync cycle started")

	store, err := s.matchRepo.Load(ctx)
	if err != nil {
		// writing now would replace the stored history with this cycle's matches
		log.Error().Err(err).Msg("sync cycle aborted before fetching")
		return report, err
	}

	syncReport, err := s.engine.SyncAll(ctx, store, s.roster, s.denylist)
	if err != nil {
		// nothing has been written yet; the next cycle starts from the saved state
		log.Error().Err(err).Msg("sync cycle aborted")
		return report, fmt.Errorf("sync aborted: %w", err)
	}

	for _, pr := range syncReport.Players {
		if pr.PagesFetched == 0 {
			report.PlayersFailed++
		} else {
			report.PlayersSynced++
		}
	}
	report.MatchesAdded = syncReport.Added
	report.Excluded = syncReport.Excluded
	report.MatchesTotal = store.Len()

	if err := s.matchRepo.Save(ctx, store); err != nil {
		log.Error().Err(err).Msg("failed to save matches")
		return report, err
	}

	playerStats := stats.Compute(store.Matches(), s.roster, s.denylist)
	if err := s.statsRepo.Publish(ctx, playerStats); err != nil {
		log.Error().Err(err).Msg("failed to publish player stats")
		return report, err
	}

	report.Duration = time.Since(report.StartedAt)
	log.Info().
		Int("players_synced", report.PlayersSynced).
		Int("players_failed", report.PlayersFailed).
		Int("matches_added", report.MatchesAdded).
		Int("matches_total", report.MatchesTotal).
		Int("excluded", report.Excluded).
		Dur("duration", report.Duration).
		Msg("sync cycle completed")

	return report, nil
}
