package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"aoe-stats/internal/database"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))

	require.NoError(t, s.Put(ctx, "matches", []byte(`{"1":{}}`), PutOptions{ContentType: "application/json"}))
	doc, err := s.Get(ctx, "matches")
	require.NoError(t, err)
	assert.Equal(t, `{"1":{}}`, string(doc.Body))
	assert.Equal(t, "application/json", doc.ContentType)
	assert.False(t, doc.UpdatedAt.IsZero())

	require.NoError(t, s.Put(ctx, "matches", []byte(`{}`), PutOptions{CacheControl: "public, max-age=15"}))
	doc, err = s.Get(ctx, "matches")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(doc.Body))
	assert.Equal(t, "public, max-age=15", doc.CacheControl)
	assert.Empty(t, doc.ContentType)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	testStore(t, s)
	assert.Equal(t, []string{"matches"}, s.Keys())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	body := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", body, PutOptions{}))
	body[0] = 'x'

	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	doc.Body[1] = 'y'

	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again.Body))
}

func TestSQLiteStore(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "docs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	testStore(t, NewSQLiteStore(db, zerolog.Nop()))
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	s, err := NewRedisStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.prefix = "aoe-stats:test:" + t.Name() + ":"

	testStore(t, s)
}
