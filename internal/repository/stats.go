package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"aoe-stats/internal/blob"
	"aoe-stats/internal/constants"
	"aoe-stats/internal/domain"

	"github.com/rs/zerolog"
)

type StatsRepository struct {
	blobs  blob.Store
	logger zerolog.Logger
}

func NewStatsRepository(blobs blob.Store, logger zerolog.Logger) *StatsRepository {
	return &StatsRepository{blobs: blobs, logger: logger}
}

// Publish replaces the published statistics snapshot.
func (r *StatsRepository) Publish(ctx context.Context, stats []domain.PlayerStats) error {
	if stats == nil {
		stats = []domain.PlayerStats{}
	}
	body, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode player stats: %w", err)
	}

	err = r.blobs.Put(ctx, constants.PlayerStatsKey, body, blob.PutOptions{
		CacheControl: constants.PlayerStatsCacheControl,
		ContentType:  "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to publish player stats: %w", err)
	}

	r.logger.Info().Int("players", len(stats)).Msg("player stats published")
	return nil
}

func (r *StatsRepository) Document(ctx context.Context) (*blob.Document, error) {
	return r.blobs.Get(ctx, constants.PlayerStatsKey)
}
