// Package stats derives per-player statistics from the match history.
package stats

import (
	"slices"

	"aoe-stats/internal/constants"
	"aoe-stats/internal/domain"
	"aoe-stats/internal/roster"
)

// Qualifies reports whether m can count toward statistics: every participant
// has a known result, there is at least one winner and one loser, and nobody
// outside the roster took part.
func Qualifies(m domain.Match, r *roster.Roster) bool {
	if len(m.Participants) == 0 {
		return false
	}
	var winners, losers int
	for _, p := range m.Participants {
		if !p.HasResult() || !r.Contains(p.ExternalID) {
			return false
		}
		if *p.Won {
			winners++
		} else {
			losers++
		}
	}
	return winners > 0 && losers > 0
}

// QualifyingMatches filters matches and orders them newest first.
func QualifyingMatches(matches []domain.Match, r *roster.Roster, deny roster.Denylist) []domain.Match {
	var out []domain.Match
	for _, m := range matches {
		if deny.Contains(m.MatchID) || !Qualifies(m, r) {
			continue
		}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b domain.Match) int {
		return domain.CompareMatchIDs(b.MatchID, a.MatchID)
	})
	return out
}

// Compute returns one record per roster entry, in roster order.
func Compute(matches []domain.Match, r *roster.Roster, deny roster.Denylist) []domain.PlayerStats {
	qualifying := QualifyingMatches(matches, r, deny)
	players := r.Players()

	out := make([]domain.PlayerStats, 0, len(players))
	for _, player := range players {
		out = append(out, forPlayer(player, players, qualifying))
	}
	return out
}

func forPlayer(player domain.Player, all []domain.Player, matches []domain.Match) domain.PlayerStats {
	var results []bool
	teamMateWins := make(map[string]int)
	for _, mate := range all {
		if mate.ExternalID != player.ExternalID {
			teamMateWins[mate.Name] = 0
		}
	}

	for _, m := range matches {
		p, ok := m.Participant(player.ExternalID)
		if !ok {
			continue
		}
		results = append(results, *p.Won)
		if !*p.Won {
			continue
		}
		for _, mate := range all {
			if mate.ExternalID == player.ExternalID {
				continue
			}
			if mp, ok := m.Participant(mate.ExternalID); ok && mp.Winner() {
				teamMateWins[mate.Name]++
			}
		}
	}

	games := len(results)
	wins := countTrue(results)
	recent := results[:min(constants.ResultsWindow, games)]

	return domain.PlayerStats{
		Player:         player,
		Games:          games,
		Wins:           wins,
		OverallWinRate: rate(wins, games),
		WinRateLast10:  rate(countTrue(recent), len(recent)),
		Results:        append([]bool{}, recent...),
		TeamMateWins:   teamMateWins,
	}
}

func rate(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func countTrue(results []bool) int {
	n := 0
	for _, r := range results {
		if r {
			n++
		}
	}
	return n
}
