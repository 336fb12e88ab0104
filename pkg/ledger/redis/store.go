// Package redis provides a redis-backed publish state store for deployments
// that already run redis next to the sync workers.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

const keyPrefix = "journeysync:ledger:"

// Store implements ledger.Store on redis. Entries are stored as JSON values
// under one key per touchpoint id; SET is atomic, so concurrent upserts for
// the same id serialize server-side.
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a redis ledger store from a connection URL.
func NewStore(url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Store{client: redis.NewClient(opts)}, nil
}

// NewStoreWithClient creates a redis ledger store over an existing client.
func NewStoreWithClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, touchpointID string) (*models.PublishStateEntry, error) {
	data, err := s.client.Get(ctx, keyPrefix+touchpointID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.ErrLedgerEntryNotFound
		}

		return nil, fmt.Errorf("failed to read publish state from redis: %w", err)
	}

	entry := &models.PublishStateEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("failed to decode publish state entry: %w", err)
	}

	return entry, nil
}

func (s *Store) Upsert(ctx context.Context, entry *models.PublishStateEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode publish state entry: %w", err)
	}

	// Entries never expire; the ledger must survive restarts.
	if err := s.client.Set(ctx, keyPrefix+entry.TouchpointID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write publish state to redis: %w", err)
	}

	return nil
}

// Ping verifies the redis connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
