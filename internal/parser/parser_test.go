package parser

import (
	"os"
	"path/filepath"
	"testing"

	"aoe-stats/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

func won(name, id string) domain.MatchParticipant {
	return domain.MatchParticipant{Name: name, ExternalID: id, Won: domain.Result(true)}
}

func lost(name, id string) domain.MatchParticipant {
	return domain.MatchParticipant{Name: name, ExternalID: id, Won: domain.Result(false)}
}

func unknown(name, id string) domain.MatchParticipant {
	return domain.MatchParticipant{Name: name, ExternalID: id}
}

func TestParseListingPage(t *testing.T) {
	entries := ParseListingPage(fixture(t, "listing_v2.html"))
	require.Len(t, entries, 4)

	assert.Equal(t, Entry{
		MatchID: "372211",
		Match: domain.Match{MatchID: "372211", Participants: []domain.MatchParticipant{
			won("Calum", "4854548"),
			won("RAD", "2418734"),
			lost("Simie", "1512338"),
			lost("Tedo", "4657043"),
		}},
		Complete: true,
	}, entries[0])

	assert.Equal(t, "372150", entries[1].MatchID)
	assert.Equal(t, []domain.MatchParticipant{
		won("Calum", "4854548"),
		lost("Stranger", "9999999"),
	}, entries[1].Match.Participants)

	// teams without a result marker stay unknown and need the detail page
	assert.Equal(t, "372100", entries[2].MatchID)
	assert.False(t, entries[2].Complete)
	assert.Equal(t, []domain.MatchParticipant{
		unknown("Calum", "4854548"),
		unknown("David", "1948286"),
	}, entries[2].Match.Participants)

	assert.Equal(t, "371999", entries[3].MatchID)
	assert.False(t, entries[3].Complete)
	assert.Empty(t, entries[3].Match.Participants)
}

func TestParseListingPageFallsBackToLinks(t *testing.T) {
	entries := ParseListingPage(fixture(t, "listing_links_only.html"))

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.MatchID)
		assert.False(t, e.Complete)
	}
	assert.Equal(t, []string{"500", "499"}, ids)
}

func TestParseListingPageEmpty(t *testing.T) {
	assert.Empty(t, ParseListingPage(fixture(t, "empty.html")))
	assert.Empty(t, ParseListingPage(nil))
	assert.Empty(t, ParseListingPage([]byte("   ")))
	assert.Empty(t, ParseListingPage([]byte(`{"matches": []}`)))
}

func TestParseMatchDetail(t *testing.T) {
	m, ok := ParseMatchDetail(fixture(t, "detail.html"), "371999")
	require.True(t, ok)

	assert.Equal(t, domain.Match{MatchID: "371999", Participants: []domain.MatchParticipant{
		won("Calum", "4854548"),
		lost("Venko", "2518648"),
	}}, m)
}

func TestParseMatchDetailMissing(t *testing.T) {
	_, ok := ParseMatchDetail([]byte("<html><body>gone</body></html>"), "1")
	assert.False(t, ok)

	_, ok = ParseMatchDetail(fixture(t, "detail.html"), `1"]`)
	assert.False(t, ok)
}

func TestHrefPatterns(t *testing.T) {
	assert.Equal(t, "42", MatchIDFromHref("/match/42/"))
	assert.Equal(t, "42", MatchIDFromHref("/match/42"))
	assert.Equal(t, "42", MatchIDFromHref("https://example.com/match/42/?tab=chat"))
	assert.Empty(t, MatchIDFromHref("/match/42/players/"))
	assert.Empty(t, MatchIDFromHref("/user/42/"))

	assert.Equal(t, "7", PlayerIDFromHref("/user/7/"))
	assert.Empty(t, PlayerIDFromHref("/user/7/matches/"))
}
