package repository

import (
	"context"
	"fmt"
	"time"

	"aoe-stats/internal/blob"
	"aoe-stats/internal/constants"

	"github.com/rs/zerolog"
)

// RawArchiveRepository keeps every fetched listing page, one folder per day,
// so a parser change can be replayed against what the source actually served.
type RawArchiveRepository struct {
	blobs  blob.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewRawArchiveRepository(blobs blob.Store, logger zerolog.Logger) *RawArchiveRepository {
	return &RawArchiveRepository{blobs: blobs, logger: logger, now: time.Now}
}

func RawPageKey(day time.Time, playerID string, page int) string {
	return fmt.Sprintf("%s/dt=%s/%s/page-%d.html", constants.RawPrefix, day.UTC().Format(time.DateOnly), playerID, page)
}

func (r *RawArchiveRepository) StoreListingPage(ctx context.Context, playerID string, page int, body []byte) error {
	key := RawPageKey(r.now(), playerID, page)
	if err := r.blobs.Put(ctx, key, body, blob.PutOptions{ContentType: "text/html"}); err != nil {
		return fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return nil
}
