package domain

import (
	"strings"
)

type Player struct {
	Name       string `json:"name" toml:"name"`
	ExternalID string `json:"external_id" toml:"external_id"`
}

type MatchParticipant struct {
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
	// nil when the source had no result for this player
	Won *bool `json:"won,omitempty"`
}

func (p MatchParticipant) HasResult() bool {
	return p.Won != nil
}

func (p MatchParticipant) Winner() bool {
	return p.Won != nil && *p.Won
}

type Match struct {
	MatchID      string             `json:"match_id"`
	Participants []MatchParticipant `json:"participants"`
}

// Participant returns the entry for externalID, if the player took part.
func (m Match) Participant(externalID string) (MatchParticipant, bool) {
	for _, p := range m.Participants {
		if p.ExternalID == externalID {
			return p, true
		}
	}
	return MatchParticipant{}, false
}

// KnownResults counts participants whose result is known.
func (m Match) KnownResults() int {
	n := 0
	for _, p := range m.Participants {
		if p.HasResult() {
			n++
		}
	}
	return n
}

// Concluded reports whether every participant has a known result.
func (m Match) Concluded() bool {
	return len(m.Participants) > 0 && m.KnownResults() == len(m.Participants)
}

type PlayerStats struct {
	Player         Player         `json:"player"`
	Games          int            `json:"games"`
	Wins           int            `json:"wins"`
	OverallWinRate float64        `json:"overall_win_rate"`
	WinRateLast10  float64        `json:"win_rate_last10"`
	Results        []bool         `json:"results"`
	TeamMateWins   map[string]int `json:"team_mate_wins"`
}

func Result(won bool) *bool {
	return &won
}

// CompareMatchIDs orders two decimal match ids numerically. Ids of any length
// are supported; leading zeros are ignored.
func CompareMatchIDs(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func ValidMatchID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
