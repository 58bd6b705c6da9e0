// Package redis implements the durable limiter record store. Records are
// stored as JSON values with a TTL so idle identifiers age out on their own.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portalpay/internal/ratelimit/models"
)

const recordKeyPrefix = "rl:rec:"

// Store persists limiter records in Redis.
type Store struct {
	client *redis.Client
}

// New constructs a Redis-backed record store.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Get returns the record for a key, or nil when none exists.
func (s *Store) Get(ctx context.Context, key string) (*models.Record, error) {
	raw, err := s.client.Get(ctx, recordKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rate limit record: %w", err)
	}

	var record models.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		// A corrupt record is treated as absent; it will be rewritten on the
		// next persist.
		return nil, nil
	}
	return &record, nil
}

// Put stores a record with the given retention.
func (s *Store) Put(ctx context.Context, key string, record *models.Record, ttl time.Duration) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal rate limit record: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.client.Set(ctx, recordKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("put rate limit record: %w", err)
	}
	return nil
}

// Delete removes the record for a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, recordKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete rate limit record: %w", err)
	}
	return nil
}
