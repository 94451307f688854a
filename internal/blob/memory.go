package blob

import (
	"context"
	"slices"
	"sync"
	"time"
)

type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	doc.Body = slices.Clone(doc.Body)
	return &doc, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, body []byte, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = Document{
		Key:          key,
		Body:         slices.Clone(body),
		CacheControl: opts.CacheControl,
		ContentType:  opts.ContentType,
		UpdatedAt:    s.now(),
	}
	return nil
}

// Keys lists stored keys in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.docs))
	for k := range s.docs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
