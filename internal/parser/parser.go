// Package parser extracts match records from the upstream site's markup.
//
// Parsing never fails: markup that does not have the expected shape yields
// fewer entries, so a changed page degrades a sync cycle instead of aborting it.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"aoe-stats/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

var (
	matchHrefPattern  = regexp.MustCompile(`^(?:https?://[^/]+)?/match/(\d+)/?(?:[?#].*)?$`)
	playerHrefPattern = regexp.MustCompile(`^(?:https?://[^/]+)?/user/(\d+)/?(?:[?#].*)?$`)
)

const (
	tileSelector = ".match-tile, [data-match-id]"
	teamSelector = ".team"
)

// Entry is one match found on a listing page. Complete is false when the tile
// carried no participant with a result, in which case the detail page has to
// be fetched.
type Entry struct {
	MatchID  string
	Match    domain.Match
	Complete bool
}

// ParseListingPage returns the matches on a listing page in page order,
// without duplicates.
func ParseListingPage(raw []byte) []Entry {
	doc, ok := load(raw)
	if !ok {
		return nil
	}

	var entries []Entry
	seen := make(map[string]struct{})
	add := func(e Entry) {
		if _, dup := seen[e.MatchID]; dup {
			return
		}
		seen[e.MatchID] = struct{}{}
		entries = append(entries, e)
	}

	doc.Find(tileSelector).Each(func(_ int, tile *goquery.Selection) {
		// nested [data-match-id] elements are handled by their tile
		if tile.ParentsFiltered(tileSelector).Length() > 0 {
			return
		}
		id := tileMatchID(tile)
		if id == "" {
			return
		}
		m := domain.Match{MatchID: id, Participants: parseParticipants(tile)}
		add(Entry{MatchID: id, Match: m, Complete: m.KnownResults() > 0})
	})

	if len(entries) > 0 {
		return entries
	}

	// no tiles: fall back to bare match links so new ids are still discovered
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if id := MatchIDFromHref(a.AttrOr("href", "")); id != "" {
			add(Entry{MatchID: id, Match: domain.Match{MatchID: id}})
		}
	})
	return entries
}

// ParseMatchDetail reads the participants of matchID from its own page. ok is
// false when no participant could be found.
func ParseMatchDetail(raw []byte, matchID string) (domain.Match, bool) {
	if !domain.ValidMatchID(matchID) {
		return domain.Match{}, false
	}
	doc, ok := load(raw)
	if !ok {
		return domain.Match{}, false
	}

	root := doc.Selection
	if scoped := doc.Find(`[data-match-id="` + matchID + `"]`).First(); scoped.Length() > 0 {
		root = scoped
	}

	participants := parseParticipants(root)
	if len(participants) == 0 {
		return domain.Match{}, false
	}
	return domain.Match{MatchID: matchID, Participants: participants}, true
}

func MatchIDFromHref(href string) string {
	if m := matchHrefPattern.FindStringSubmatch(strings.TrimSpace(href)); m != nil {
		return m[1]
	}
	return ""
}

func PlayerIDFromHref(href string) string {
	if m := playerHrefPattern.FindStringSubmatch(strings.TrimSpace(href)); m != nil {
		return m[1]
	}
	return ""
}

func load(raw []byte) (*goquery.Document, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	return doc, true
}

func tileMatchID(tile *goquery.Selection) string {
	if id, ok := tile.Attr("data-match-id"); ok && domain.ValidMatchID(id) {
		return id
	}
	var id string
	tile.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		id = MatchIDFromHref(a.AttrOr("href", ""))
		return id == ""
	})
	return id
}

// parseParticipants collects player links grouped by team. The result of a
// team applies to all of its members. Player links outside any team are kept
// with an unknown result.
func parseParticipants(root *goquery.Selection) []domain.MatchParticipant {
	var out []domain.MatchParticipant
	seen := make(map[string]struct{})

	collect := func(sel *goquery.Selection, won *bool) {
		sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			id := PlayerIDFromHref(a.AttrOr("href", ""))
			if id == "" {
				return
			}
			if _, dup := seen[id]; dup {
				return
			}
			seen[id] = struct{}{}

			name := strings.TrimSpace(a.Text())
			if name == "" {
				name = strings.TrimSpace(a.AttrOr("title", ""))
			}
			p := domain.MatchParticipant{Name: name, ExternalID: id}
			if won != nil {
				p.Won = domain.Result(*won)
			}
			out = append(out, p)
		})
	}

	teams := root.Find(teamSelector)
	teams.Each(func(_ int, team *goquery.Selection) {
		collect(team, teamResult(team))
	})
	if teams.Length() == 0 {
		collect(root, nil)
	}
	return out
}

func teamResult(team *goquery.Selection) *bool {
	if v, ok := team.Attr("data-result"); ok {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "won", "win", "victory":
			return domain.Result(true)
		case "lost", "loss", "defeat":
			return domain.Result(false)
		}
		return nil
	}

	switch {
	case team.HasClass("won"), team.HasClass("winner"):
		return domain.Result(true)
	case team.HasClass("lost"), team.HasClass("loser"):
		return domain.Result(false)
	}
	return nil
}
