package matchstore

import (
	"encoding/json"
	"testing"

	"aoe-stats/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(id string, players ...string) domain.Match {
	m := domain.Match{MatchID: id}
	for i, p := range players {
		m.Participants = append(m.Participants, domain.MatchParticipant{
			Name:       p,
			ExternalID: p,
			Won:        domain.Result(i%2 == 0),
		})
	}
	return m
}

func TestMergeUpserts(t *testing.T) {
	s := New()

	assert.Equal(t, 2, s.Merge(match("1", "a", "b"), match("2", "a", "c")))
	assert.Equal(t, 0, s.Merge(match("1", "a", "b", "c")))
	assert.Equal(t, 2, s.Len())

	m, ok := s.Get("1")
	require.True(t, ok)
	assert.Len(t, m.Participants, 3, "latest parse wins")
}

func TestMergeLastWriteWinsWithinCall(t *testing.T) {
	s := New()
	s.Merge(match("7", "a"), match("7", "a", "b"))

	m, _ := s.Get("7")
	assert.Len(t, m.Participants, 2)
	assert.Equal(t, 1, s.Len())
}

func TestMergeIsAssociative(t *testing.T) {
	base := New()
	base.Merge(match("1", "a", "b"), match("5", "x", "y"))

	m1 := []domain.Match{match("2", "a"), match("5", "x", "y", "z")}
	m2 := []domain.Match{match("2", "a", "b"), match("3", "c")}

	stepwise := base.Clone()
	stepwise.Merge(m1...)
	stepwise.Merge(m2...)

	combined := base.Clone()
	combined.Merge(append(append([]domain.Match{}, m1...), m2...)...)

	assert.Equal(t, combined.Matches(), stepwise.Matches())

	// idempotent per key
	again := stepwise.Clone()
	again.Merge(m2...)
	assert.Equal(t, stepwise.Matches(), again.Matches())
}

func TestMergeOrderAcrossDisjointSources(t *testing.T) {
	a := []domain.Match{match("10", "a"), match("11", "a")}
	b := []domain.Match{match("12", "b"), match("11", "a")}

	s1 := New()
	s1.Merge(a...)
	s1.Merge(b...)

	s2 := New()
	s2.Merge(b...)
	s2.Merge(a...)

	assert.Equal(t, s1.Matches(), s2.Matches())
}

func TestMergeCopiesParticipants(t *testing.T) {
	s := New()
	m := match("1", "a")
	s.Merge(m)
	m.Participants[0].Name = "changed"

	got, _ := s.Get("1")
	assert.Equal(t, "a", got.Participants[0].Name)
}

func TestExclude(t *testing.T) {
	s := New()
	s.Merge(match("1", "a"), match("2", "a"), match("3", "a"))

	assert.Equal(t, 2, s.Exclude("1", "3", "99"))
	assert.Equal(t, []string{"2"}, s.IDs())
	assert.Equal(t, 0, s.Exclude("1"))
}

func TestIDsNumericOrder(t *testing.T) {
	s := New()
	s.Merge(match("95", "a"), match("100", "a"), match("1000", "a"), match("99", "a"))

	assert.Equal(t, []string{"1000", "100", "99", "95"}, s.IDs())
}

func TestCloneIsIndependent(t *testing.T) {
	s := New()
	s.Merge(match("1", "a"))
	c := s.Clone()
	c.Merge(match("2", "a"))
	c.Exclude("1")

	assert.True(t, s.Has("1"))
	assert.False(t, s.Has("2"))
}

func TestDecodeRoundTrip(t *testing.T) {
	s := New()
	s.Merge(match("1", "a", "b"), domain.Match{
		MatchID:      "2",
		Participants: []domain.MatchParticipant{{Name: "c", ExternalID: "c"}},
	})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	got, quarantined, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, quarantined)
	assert.Equal(t, s.Matches(), got.Matches())

	m, _ := got.Get("2")
	assert.False(t, m.Participants[0].HasResult(), "unknown result survives persistence")
}

func TestDecodeQuarantinesBadEntries(t *testing.T) {
	doc := `{
		"1": {"match_id": "1", "participants": [{"name": "a", "external_id": "a", "won": true}]},
		"2": {"match_id": "3", "participants": [{"name": "a", "external_id": "a"}]},
		"x": {"match_id": "x", "participants": [{"name": "a", "external_id": "a"}]},
		"4": {"match_id": "4", "participants": []},
		"5": {"match_id": "5", "participants": [{"name": "a"}]},
		"6": {"match_id": "6", "participants": [{"name": "a", "external_id": "a"}, {"name": "a", "external_id": "a"}]},
		"7": {"match_id": "7", "participants": [{"name": "a", "external_id": "a", "won": "yes"}]},
		"8": 42
	}`

	s, quarantined, err := Decode([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, s.IDs())
	assert.Len(t, quarantined, 7)
	assert.ErrorIs(t, quarantined["2"], errKeyMismatch)
	assert.ErrorIs(t, quarantined["x"], errBadID)
	assert.ErrorIs(t, quarantined["4"], errNoParticipants)
	assert.ErrorIs(t, quarantined["5"], errParticipantID)
	assert.ErrorIs(t, quarantined["6"], errDupParticipants)
	assert.Error(t, quarantined["7"])
	assert.Error(t, quarantined["8"])
}

func TestDecodeCorrupt(t *testing.T) {
	_, _, err := Decode([]byte(`[1, 2`))
	assert.Error(t, err)

	_, _, err = Decode([]byte(`[]`))
	assert.Error(t, err)

	s, _, err := Decode([]byte(`null`))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}
