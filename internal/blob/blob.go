// Package blob is the flat key/value document store that holds the match
// history, the published statistics and the raw page archive.
package blob

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("blob: document not found")

type PutOptions struct {
	CacheControl string
	ContentType  string
}

type Document struct {
	Key          string
	Body         []byte
	CacheControl string
	ContentType  string
	UpdatedAt    time.Time
}

// Store reads and replaces whole documents. Put replaces any prior version in
// one step; readers never observe a partially written body.
type Store interface {
	Get(ctx context.Context, key string) (*Document, error)
	Put(ctx context.Context, key string, body []byte, opts PutOptions) error
}

// IsNotFound reports whether err means the key has never been written.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
