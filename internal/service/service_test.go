package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"aoe-stats/internal/blob"
	"aoe-stats/internal/constants"
	"aoe-stats/internal/domain"
	"aoe-stats/internal/matchstore"
	"aoe-stats/internal/repository"
	"aoe-stats/internal/roster"
	"aoe-stats/internal/syncer"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu      sync.Mutex
	pages   map[string][]byte
	calls   int
	release chan struct{}
	started chan struct{}
}

func (s *stubSource) FetchListingPage(ctx context.Context, playerID string, page int) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first && s.started != nil {
		close(s.started)
		<-s.release
	}
	if page > 1 {
		return nil, nil
	}
	body, ok := s.pages[playerID]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return body, nil
}

func (s *stubSource) FetchMatchDetail(context.Context, string) ([]byte, error) {
	return nil, errors.New("not used")
}

func tile(id, winner, loser string) string {
	return fmt.Sprintf(`<div class="match-tile" data-match-id="%s"><div class="team won"><a href="/user/%s/">%s</a></div><div class="team lost"><a href="/user/%s/">%s</a></div></div>`,
		id, winner, winner, loser, loser)
}

type fixture struct {
	blobs   *blob.MemoryStore
	source  *stubSource
	refresh *RefreshService
	matches *MatchService
	stats   *StatsService
}

func newFixture(t *testing.T, deny roster.Denylist) *fixture {
	t.Helper()
	r, err := roster.New([]domain.Player{
		{Name: "A", ExternalID: "1"},
		{Name: "B", ExternalID: "2"},
		{Name: "B-alt", ExternalID: "2"},
		{Name: "C", ExternalID: "3"},
	})
	require.NoError(t, err)

	log := zerolog.Nop()
	blobs := blob.NewMemoryStore()
	src := &stubSource{pages: map[string][]byte{
		"1": []byte(tile("20", "1", "2") + tile("19", "2", "1")),
		"3": []byte(tile("18", "3", "1")),
	}}
	matchRepo := repository.NewMatchRepository(blobs, log)
	statsRepo := repository.NewStatsRepository(blobs, log)
	engine := syncer.NewEngine(src, syncer.Options{Stop: syncer.DefaultPolicy(3)}, log)

	return &fixture{
		blobs:   blobs,
		source:  src,
		refresh: NewRefreshService(engine, matchRepo, statsRepo, r, deny, log),
		matches: NewMatchService(matchRepo, r, deny, log),
		stats:   NewStatsService(statsRepo),
	}
}

func TestRefreshCycle(t *testing.T) {
	f := newFixture(t, roster.NewDenylist("19"))
	ctx := context.Background()

	report, err := f.refresh.Refresh(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, report.CycleID)
	assert.Equal(t, 2, report.PlayersSynced)
	assert.Equal(t, 1, report.PlayersFailed, "player 2 has no listing")
	assert.Equal(t, 3, report.MatchesAdded)
	assert.Equal(t, 1, report.Excluded)
	assert.Equal(t, 2, report.MatchesTotal)

	doc, err := f.blobs.Get(ctx, constants.MatchesKey)
	require.NoError(t, err)
	stored, _, err := matchstore.Decode(doc.Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"20", "18"}, stored.IDs())

	published, err := f.stats.Published(ctx)
	require.NoError(t, err)
	assert.Equal(t, constants.PlayerStatsCacheControl, published.CacheControl)

	var playerStats []domain.PlayerStats
	require.NoError(t, json.Unmarshal(published.Body, &playerStats))
	require.Len(t, playerStats, 4)
	assert.Equal(t, "A", playerStats[0].Player.Name)
	assert.Equal(t, 2, playerStats[0].Games)
	assert.Equal(t, []bool{true, false}, playerStats[0].Results)
	assert.Equal(t, playerStats[1].Games, playerStats[2].Games, "aliases share an account")
}

func TestRefreshIsIncremental(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.refresh.Refresh(ctx)
	require.NoError(t, err)

	report, err := f.refresh.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.MatchesAdded)
	assert.Equal(t, 3, report.MatchesTotal)
}

func TestRefreshCoalescesTriggers(t *testing.T) {
	f := newFixture(t, nil)
	f.source.started = make(chan struct{})
	f.source.release = make(chan struct{})

	var wg sync.WaitGroup
	reports := make([]CycleReport, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		reports[0], _ = f.refresh.Refresh(context.Background())
	}()
	<-f.source.started

	wg.Add(1)
	joined := make(chan struct{})
	go func() {
		defer wg.Done()
		close(joined)
		reports[1], _ = f.refresh.Refresh(context.Background())
	}()
	<-joined

	close(f.source.release)
	wg.Wait()

	// the second trigger either joined the first cycle or ran after it
	if reports[1].Shared {
		assert.Equal(t, reports[0].CycleID, reports[1].CycleID)
	} else {
		assert.NotEqual(t, reports[0].CycleID, reports[1].CycleID)
	}
	assert.Equal(t, 3, reports[0].MatchesAdded)
}

// flakyStore is a memory store whose reads or writes can be made to fail.
type flakyStore struct {
	*blob.MemoryStore
	getErr error
	putErr error
}

func (f *flakyStore) Get(ctx context.Context, key string) (*blob.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryStore.Get(ctx, key)
}

func (f *flakyStore) Put(ctx context.Context, key string, body []byte, opts blob.PutOptions) error {
	if f.putErr != nil {
		return f.putErr
	}
	return f.MemoryStore.Put(ctx, key, body, opts)
}

func newFlakyService(t *testing.T, blobs *flakyStore, src *stubSource) *RefreshService {
	t.Helper()
	r, err := roster.New([]domain.Player{{Name: "A", ExternalID: "1"}, {Name: "B", ExternalID: "2"}})
	require.NoError(t, err)

	log := zerolog.Nop()
	engine := syncer.NewEngine(src, syncer.Options{Stop: syncer.DefaultPolicy(3)}, log)
	return NewRefreshService(engine, repository.NewMatchRepository(blobs, log), repository.NewStatsRepository(blobs, log), r, nil, log)
}

func TestRefreshSaveFailure(t *testing.T) {
	blobs := &flakyStore{MemoryStore: blob.NewMemoryStore(), putErr: errors.New("denied")}
	svc := newFlakyService(t, blobs, &stubSource{pages: map[string][]byte{"1": []byte(tile("20", "1", "2"))}})

	_, err := svc.Refresh(context.Background())
	assert.Error(t, err)
}

func TestRefreshReadFailureKeepsHistory(t *testing.T) {
	ctx := context.Background()
	blobs := &flakyStore{MemoryStore: blob.NewMemoryStore()}
	src := &stubSource{pages: map[string][]byte{
		"1": []byte(tile("20", "1", "2") + tile("19", "2", "1") + tile("18", "1", "2")),
	}}
	svc := newFlakyService(t, blobs, src)

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)
	statsBefore, err := blobs.MemoryStore.Get(ctx, constants.PlayerStatsKey)
	require.NoError(t, err)

	src.pages["1"] = []byte(tile("21", "1", "2") + tile("20", "1", "2"))
	blobs.getErr = errors.New("connection reset")
	_, err = svc.Refresh(ctx)
	assert.Error(t, err)

	doc, err := blobs.MemoryStore.Get(ctx, constants.MatchesKey)
	require.NoError(t, err)
	stored, _, err := matchstore.Decode(doc.Body)
	require.NoError(t, err)
	assert.Equal(t, []string{"20", "19", "18"}, stored.IDs())

	statsAfter, err := blobs.MemoryStore.Get(ctx, constants.PlayerStatsKey)
	require.NoError(t, err)
	assert.Equal(t, statsBefore.Body, statsAfter.Body)

	// the next healthy cycle picks up where the saved history left off
	blobs.getErr = nil
	report, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.MatchesAdded)
	assert.Equal(t, 4, report.MatchesTotal)
}

func TestPlayedTogether(t *testing.T) {
	f := newFixture(t, roster.NewDenylist("19"))
	ctx := context.Background()
	_, err := f.refresh.Refresh(ctx)
	require.NoError(t, err)

	matches, err := f.matches.PlayedTogether(ctx, []string{"B", "A"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "20", matches[0].MatchID)

	matches, err = f.matches.PlayedTogether(ctx, []string{"A", "B-alt"})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	matches, err = f.matches.PlayedTogether(ctx, []string{"A"})
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = f.matches.PlayedTogether(ctx, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPlayedTogetherErrors(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.matches.PlayedTogether(context.Background(), []string{"A", "Zed"})
	assert.ErrorIs(t, err, ErrUnknownPlayer)

	_, err = f.matches.PlayedTogether(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoPlayers)
}
