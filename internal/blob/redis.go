package blob

import (
	"context"
	"fmt"
	"time"

	"aoe-stats/internal/constants"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each document in a hash so the body and its metadata are
// replaced by one HSET.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return NewRedisStoreFromClient(client), nil
}

func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "aoe-stats:doc:"}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Document, error) {
	vals, err := s.client.HGetAll(ctx, s.prefix+key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", key, err)
	}
	body, ok := vals["body"]
	if !ok {
		return nil, ErrNotFound
	}

	doc := &Document{
		Key:          key,
		Body:         []byte(body),
		CacheControl: vals["cache_control"],
		ContentType:  vals["content_type"],
	}
	if ts, err := time.Parse(time.RFC3339Nano, vals["updated_at"]); err == nil {
		doc.UpdatedAt = ts
	}
	return doc, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, body []byte, opts PutOptions) error {
	err := s.client.HSet(ctx, s.prefix+key,
		"body", body,
		"cache_control", opts.CacheControl,
		"content_type", opts.ContentType,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", key, err)
	}
	return nil
}
