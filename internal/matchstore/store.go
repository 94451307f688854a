// Package matchstore holds the canonical match history: one record per match
// id, merged incrementally and persisted as a single document.
package matchstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"aoe-stats/internal/domain"
)

type Store struct {
	matches map[string]domain.Match
}

func New() *Store {
	return &Store{matches: make(map[string]domain.Match)}
}

func (s *Store) Len() int {
	return len(s.matches)
}

func (s *Store) Has(matchID string) bool {
	_, ok := s.matches[matchID]
	return ok
}

func (s *Store) Get(matchID string) (domain.Match, bool) {
	m, ok := s.matches[matchID]
	return m, ok
}

// Merge upserts incoming matches by id; a later entry replaces an earlier one.
// It returns how many ids were not present before.
func (s *Store) Merge(incoming ...domain.Match) int {
	added := 0
	for _, m := range incoming {
		if _, ok := s.matches[m.MatchID]; !ok {
			added++
		}
		m.Participants = slices.Clone(m.Participants)
		s.matches[m.MatchID] = m
	}
	return added
}

// Exclude removes ids unconditionally and returns how many were present.
func (s *Store) Exclude(ids ...string) int {
	removed := 0
	for _, id := range ids {
		if _, ok := s.matches[id]; ok {
			delete(s.matches, id)
			removed++
		}
	}
	return removed
}

func (s *Store) Clone() *Store {
	c := New()
	for id, m := range s.matches {
		m.Participants = slices.Clone(m.Participants)
		c.matches[id] = m
	}
	return c
}

// IDs returns the known ids, newest first.
func (s *Store) IDs() []string {
	ids := slices.Collect(maps.Keys(s.matches))
	slices.SortFunc(ids, func(a, b string) int {
		return domain.CompareMatchIDs(b, a)
	})
	return ids
}

// Matches returns all records, newest first.
func (s *Store) Matches() []domain.Match {
	ids := s.IDs()
	out := make([]domain.Match, len(ids))
	for i, id := range ids {
		out[i] = s.matches[id]
	}
	return out
}

func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.matches)
}

var (
	errBadID           = errors.New("match_id is not a decimal id")
	errKeyMismatch     = errors.New("match_id does not match its key")
	errNoParticipants  = errors.New("no participants")
	errParticipantID   = errors.New("participant without external_id")
	errDupParticipants = errors.New("duplicate participant")
)

// Decode parses a persisted store document. Each entry is validated on its
// own; entries that fail are left out and reported in quarantined, keyed by
// their document key. A document that is not a JSON object is an error.
func Decode(data []byte) (store *Store, quarantined map[string]error, err error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to decode match store: %w", err)
	}

	store = New()
	quarantined = make(map[string]error)
	for key, body := range raw {
		m, err := decodeMatch(key, body)
		if err != nil {
			quarantined[key] = err
			continue
		}
		store.matches[key] = m
	}
	return store, quarantined, nil
}

func decodeMatch(key string, body json.RawMessage) (domain.Match, error) {
	var m domain.Match
	if err := json.Unmarshal(body, &m); err != nil {
		return domain.Match{}, err
	}
	return m, Validate(key, m)
}

// Validate checks a record before it is accepted into the store.
func Validate(key string, m domain.Match) error {
	if !domain.ValidMatchID(m.MatchID) {
		return errBadID
	}
	if key != m.MatchID {
		return errKeyMismatch
	}
	if len(m.Participants) == 0 {
		return errNoParticipants
	}
	seen := make(map[string]struct{}, len(m.Participants))
	for _, p := range m.Participants {
		if p.ExternalID == "" {
			return errParticipantID
		}
		if _, dup := seen[p.ExternalID]; dup {
			return errDupParticipants
		}
		seen[p.ExternalID] = struct{}{}
	}
	return nil
}
