package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marketloop/journeysync/pkg/models"
	"github.com/marketloop/journeysync/pkg/persistence"
)

// Store is the durable backing for publish state entries. The persistence
// ledger repositories and the redis store both satisfy it.
type Store interface {
	Get(ctx context.Context, touchpointID string) (*models.PublishStateEntry, error)
	Upsert(ctx context.Context, entry *models.PublishStateEntry) error
}

// Service answers "does this touchpoint need publishing" and records
// confirmed publishes. Access is serialized per touchpoint id so concurrent
// workers racing on the same id cannot interleave a read-modify-write.
type Service struct {
	store  Store
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*refLock
}

// refLock is a reference-counted mutex. The count lets the lock table drop
// entries once the last holder releases, so the table stays bounded by the
// number of in-flight touchpoints rather than every id ever seen.
type refLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a ledger service over the given store.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		locks:  make(map[string]*refLock),
	}
}

// acquire locks the per-id mutex, creating the table entry on first use.
func (s *Service) acquire(touchpointID string) *refLock {
	s.mu.Lock()

	lock, ok := s.locks[touchpointID]
	if !ok {
		lock = &refLock{}
		s.locks[touchpointID] = lock
	}
	lock.refs++

	s.mu.Unlock()

	lock.mu.Lock()

	return lock
}

// release unlocks the per-id mutex and removes the table entry once nobody
// else is waiting on it.
func (s *Service) release(touchpointID string, lock *refLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, touchpointID)
	}
}

// ShouldPublish reports whether the touchpoint's content differs from what
// the ledger last recorded as published: true when no entry exists or the
// stored hash differs from contentHash.
func (s *Service) ShouldPublish(ctx context.Context, touchpointID, contentHash string) (bool, error) {
	lock := s.acquire(touchpointID)
	defer s.release(touchpointID, lock)

	entry, err := s.store.Get(ctx, touchpointID)
	if err != nil {
		if persistence.IsLedgerEntryNotFound(err) {
			return true, nil
		}

		return false, fmt.Errorf("failed to read publish state for %s: %w", touchpointID, err)
	}

	return entry.ContentHash != contentHash, nil
}

// Entry returns the recorded publish state for a touchpoint, or
// persistence.ErrLedgerEntryNotFound.
func (s *Service) Entry(ctx context.Context, touchpointID string) (*models.PublishStateEntry, error) {
	return s.store.Get(ctx, touchpointID)
}

// RecordPublish upserts the entry with a fresh timestamp after a confirmed
// remote publish.
func (s *Service) RecordPublish(ctx context.Context, touchpointID, contentHash, remoteTemplateID string, kind models.TemplateKind) error {
	lock := s.acquire(touchpointID)
	defer s.release(touchpointID, lock)

	entry := &models.PublishStateEntry{
		TouchpointID:     touchpointID,
		ContentHash:      contentHash,
		RemoteTemplateID: remoteTemplateID,
		TemplateKind:     kind,
		PublishedAt:      time.Now().UTC(),
	}

	if err := s.store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("failed to record publish for %s: %w", touchpointID, err)
	}

	s.logger.DebugContext(ctx, "Recorded publish",
		"touchpoint_id", touchpointID, "remote_template_id", remoteTemplateID, "kind", kind)

	return nil
}
