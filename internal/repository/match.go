package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"aoe-stats/internal/blob"
	"aoe-stats/internal/constants"
	"aoe-stats/internal/matchstore"

	"github.com/rs/zerolog"
)

type MatchRepository struct {
	blobs  blob.Store
	logger zerolog.Logger
}

func NewMatchRepository(blobs blob.Store, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{blobs: blobs, logger: logger}
}

// Load reads the persisted match store. A missing or corrupt document yields
// an empty store and invalid entries are dropped. A backend read failure is
// returned as an error so the caller never overwrites history it could not see.
func (r *MatchRepository) Load(ctx context.Context) (*matchstore.Store, error) {
	doc, err := r.blobs.Get(ctx, constants.MatchesKey)
	if blob.IsNotFound(err) {
		r.logger.Info().Str("key", constants.MatchesKey).Msg("no stored matches, starting empty")
		return matchstore.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stored matches: %w", err)
	}

	store, quarantined, err := matchstore.Decode(doc.Body)
	if err != nil {
		r.logger.Error().Err(err).Str("key", constants.MatchesKey).Msg("stored matches are corrupt, starting empty")
		return matchstore.New(), nil
	}

	if len(quarantined) > 0 {
		keys := make([]string, 0, len(quarantined))
		for k := range quarantined {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			r.logger.Warn().Err(quarantined[k]).Str("match_id", k).Msg("dropping invalid stored match")
		}
	}

	r.logger.Debug().Int("match_count", store.Len()).Int("quarantined", len(quarantined)).Msg("stored matches loaded")
	return store, nil
}

// Save replaces the persisted store with the full in-memory state.
func (r *MatchRepository) Save(ctx context.Context, store *matchstore.Store) error {
	body, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("failed to encode matches: %w", err)
	}

	err = r.blobs.Put(ctx, constants.MatchesKey, body, blob.PutOptions{
		CacheControl: constants.MatchesCacheControl,
		ContentType:  "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to save matches: %w", err)
	}

	r.logger.Info().Int("match_count", store.Len()).Int("bytes", len(body)).Msg("matches saved")
	return nil
}

// Document returns the stored matches document as published.
func (r *MatchRepository) Document(ctx context.Context) (*blob.Document, error) {
	return r.blobs.Get(ctx, constants.MatchesKey)
}
