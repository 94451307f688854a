package service

import (
	"context"
	"errors"
	"fmt"

	"aoe-stats/internal/blob"
	"aoe-stats/internal/domain"
	"aoe-stats/internal/repository"
	"aoe-stats/internal/roster"

	"github.com/rs/zerolog"
)

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrNoPlayers     = errors.New("no players given")
)

type MatchService struct {
	matchRepo *repository.MatchRepository
	roster    *roster.Roster
	denylist  roster.Denylist
	logger    zerolog.Logger
}

func NewMatchService(matchRepo *repository.MatchRepository, r *roster.Roster, deny roster.Denylist, logger zerolog.Logger) *MatchService {
	return &MatchService{matchRepo: matchRepo, roster: r, denylist: deny, logger: logger}
}

// PlayedTogether returns the stored matches whose participants are exactly
// the named roster players, newest first. Names are resolved to external ids,
// so roster aliases of one account count as the same player.
func (s *MatchService) PlayedTogether(ctx context.Context, names []string) ([]domain.Match, error) {
	want := make(map[string]struct{}, len(names))
	for _, name := range names {
		p, ok := s.roster.ByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, name)
		}
		want[p.ExternalID] = struct{}{}
	}
	if len(want) == 0 {
		return nil, ErrNoPlayers
	}

	store, err := s.matchRepo.Load(ctx)
	if err != nil {
		return nil, err
	}

	out := []domain.Match{}
	for _, m := range store.Matches() {
		if s.denylist.Contains(m.MatchID) {
			continue
		}
		if sameParticipants(m, want) {
			out = append(out, m)
		}
	}

	s.logger.Debug().Strs("players", names).Int("matches", len(out)).Msg("matches played together")
	return out, nil
}

func (s *MatchService) Document(ctx context.Context) (*blob.Document, error) {
	return s.matchRepo.Document(ctx)
}

func sameParticipants(m domain.Match, want map[string]struct{}) bool {
	got := make(map[string]struct{}, len(m.Participants))
	for _, p := range m.Participants {
		if _, ok := want[p.ExternalID]; !ok {
			return false
		}
		got[p.ExternalID] = struct{}{}
	}
	return len(got) == len(want)
}
