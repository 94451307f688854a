// Package syncer discovers new matches for each roster player and merges them
// into the match store.
package syncer

import (
	"context"

	"aoe-stats/internal/domain"
	"aoe-stats/internal/matchstore"
	"aoe-stats/internal/parser"
	"aoe-stats/internal/roster"

	"github.com/rs/zerolog"
)

type Source interface {
	FetchListingPage(ctx context.Context, playerID string, page int) ([]byte, error)
	FetchMatchDetail(ctx context.Context, matchID string) ([]byte, error)
}

// PageArchive receives every listing page that was fetched successfully.
type PageArchive interface {
	StoreListingPage(ctx context.Context, playerID string, page int, body []byte) error
}

// Lookup returns the stored copy of a match as of the start of the cycle.
type Lookup func(matchID string) (domain.Match, bool)

type Options struct {
	Stop StopPolicy
	// FetchDetails fetches the detail page for every new match instead of
	// trusting the listing tile.
	FetchDetails bool
	Archive      PageArchive
}

type Engine struct {
	source Source
	opts   Options
	logger zerolog.Logger
}

func NewEngine(source Source, opts Options, logger zerolog.Logger) *Engine {
	if opts.Stop == nil {
		opts.Stop = DefaultPolicy(5)
	}
	return &Engine{source: source, opts: opts, logger: logger}
}

type PlayerReport struct {
	Player       domain.Player
	PagesFetched int
	PageErrors   int
	NewMatches   int
	// stored matches whose missing results were filled in
	Concluded    int
	DetailErrors int
}

type Report struct {
	Players  []PlayerReport
	Added    int
	Updated  int
	Excluded int
}

// SyncPlayer pages through one player's listing and returns the matches to
// merge: new ones, and stored ones that were missing results the source now
// has. stored looks up what was saved before the cycle; ids in skip were found
// for another player this cycle and are not fetched again. The returned error
// is only ever a context error.
func (e *Engine) SyncPlayer(ctx context.Context, player domain.Player, stored Lookup, skip map[string]struct{}) ([]domain.Match, PlayerReport, error) {
	log := e.logger.With().Str("player", player.Name).Str("player_id", player.ExternalID).Logger()
	report := PlayerReport{Player: player}

	var pending []parser.Entry
	queued := make(map[string]struct{})
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		entries := e.fetchPage(ctx, log, player, page, &report)

		outcome := PageOutcome{Page: page, Parsed: len(entries)}
		for _, entry := range entries {
			if prev, ok := stored(entry.MatchID); ok {
				outcome.Known++
				if prev.Concluded() {
					continue
				}
			} else {
				outcome.New++
			}
			if _, dup := queued[entry.MatchID]; !dup {
				queued[entry.MatchID] = struct{}{}
				pending = append(pending, entry)
			}
		}

		log.Debug().
			Int("page", page).
			Int("parsed", outcome.Parsed).
			Int("known", outcome.Known).
			Int("new", outcome.New).
			Msg("listing page processed")

		if outcome.Parsed == 0 || e.opts.Stop(outcome) {
			break
		}
	}

	var matches []domain.Match
	for _, entry := range pending {
		if _, ok := skip[entry.MatchID]; ok {
			continue
		}
		m, ok := e.resolve(ctx, log, entry, &report)
		if !ok {
			continue
		}
		if prev, known := stored(entry.MatchID); known {
			if m.KnownResults() <= prev.KnownResults() {
				continue
			}
			report.Concluded++
		} else {
			report.NewMatches++
		}
		matches = append(matches, m)
	}
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	return matches, report, nil
}

// SyncAll runs SyncPlayer for every distinct account on the roster, one at a
// time, merges the results and reapplies the denylist. Failures of a single
// player are logged and do not stop the others.
func (e *Engine) SyncAll(ctx context.Context, store *matchstore.Store, r *roster.Roster, deny roster.Denylist) (Report, error) {
	var report Report

	snapshot := store.Clone()

	collected := make(map[string]struct{})
	for _, player := range r.SyncTargets() {
		matches, pr, err := e.SyncPlayer(ctx, player, snapshot.Get, collected)
		report.Players = append(report.Players, pr)
		if err != nil {
			return report, err
		}

		for _, m := range matches {
			collected[m.MatchID] = struct{}{}
		}
		added := store.Merge(matches...)
		report.Added += added
		report.Updated += len(matches) - added

		e.logger.Info().
			Str("player", player.Name).
			Int("pages", pr.PagesFetched).
			Int("page_errors", pr.PageErrors).
			Int("new_matches", pr.NewMatches).
			Int("concluded", pr.Concluded).
			Int("detail_errors", pr.DetailErrors).
			Msg("player synced")
	}

	report.Excluded = store.Exclude(deny.IDs()...)
	return report, nil
}

func (e *Engine) fetchPage(ctx context.Context, log zerolog.Logger, player domain.Player, page int, report *PlayerReport) []parser.Entry {
	body, err := e.source.FetchListingPage(ctx, player.ExternalID, page)
	if err != nil {
		report.PageErrors++
		log.Warn().Err(err).Int("page", page).Msg("failed to fetch listing page, treating as empty")
		return nil
	}
	report.PagesFetched++

	if e.opts.Archive != nil {
		if err := e.opts.Archive.StoreListingPage(ctx, player.ExternalID, page, body); err != nil {
			log.Warn().Err(err).Int("page", page).Msg("failed to archive listing page")
		}
	}

	entries := parser.ParseListingPage(body)
	if len(entries) == 0 {
		log.Debug().Int("page", page).Int("bytes", len(body)).Msg("no matches recognised on listing page")
	}
	return entries
}

// resolve turns a listing entry into a storable match, fetching the detail
// page when the tile was not enough.
func (e *Engine) resolve(ctx context.Context, log zerolog.Logger, entry parser.Entry, report *PlayerReport) (domain.Match, bool) {
	if entry.Complete && !e.opts.FetchDetails {
		if err := matchstore.Validate(entry.MatchID, entry.Match); err != nil {
			log.Warn().Err(err).Str("match_id", entry.MatchID).Msg("skipping malformed listing entry")
			return domain.Match{}, false
		}
		return entry.Match, true
	}

	body, err := e.source.FetchMatchDetail(ctx, entry.MatchID)
	if err != nil {
		report.DetailErrors++
		log.Warn().Err(err).Str("match_id", entry.MatchID).Msg("failed to fetch match detail, retrying next cycle")
		return domain.Match{}, false
	}

	m, ok := parser.ParseMatchDetail(body, entry.MatchID)
	if !ok {
		report.DetailErrors++
		log.Warn().Str("match_id", entry.MatchID).Msg("no participants on match page, retrying next cycle")
		return domain.Match{}, false
	}
	if err := matchstore.Validate(entry.MatchID, m); err != nil {
		report.DetailErrors++
		log.Warn().Err(err).Str("match_id", entry.MatchID).Msg("skipping malformed match detail")
		return domain.Match{}, false
	}
	return m, true
}
