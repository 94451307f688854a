package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aoe-stats/internal/constants"

	"github.com/rs/zerolog"
)

const (
	getDocumentQuery = `SELECT key, body, cache_control, content_type, updated_at FROM documents WHERE key = ?`

	upsertDocumentQuery = `
INSERT INTO documents (key, body, cache_control, content_type, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    body = excluded.body,
    cache_control = excluded.cache_control,
    content_type = excluded.content_type,
    updated_at = excluded.updated_at`
)

type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSQLiteStore(db *sql.DB, logger zerolog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, logger: logger}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Document, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	var doc Document
	err := s.db.QueryRowContext(ctx, getDocumentQuery, key).
		Scan(&doc.Key, &doc.Body, &doc.CacheControl, &doc.ContentType, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", key, err)
	}
	return &doc, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, body []byte, opts PutOptions) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, upsertDocumentQuery, key, body, opts.CacheControl, opts.ContentType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(body)).Msg("document written")
	return nil
}
