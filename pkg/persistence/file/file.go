// Package file provides file-based persistence for journeys, touchpoints and
// sync state. It is intended for development and tests; a single process-wide
// lock stands in for the transactional guarantees a database provides.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marketloop/journeysync/pkg/persistence"
)

const (
	journeysDir    = "journeys"
	touchpointsDir = "touchpoints"
	snapshotsDir   = "snapshots"
	ledgerDir      = "ledger"
	runsDir        = "runs"
	conflictsDir   = "conflicts"
)

// Persistence implements the persistence.Persistence interface on the file
// system. All repositories share one mutex so multi-entity operations (create
// with snapshot, reorder, cascade delete) are atomic with respect to each
// other within the process.
type Persistence struct {
	root string
	mu   sync.RWMutex

	journeyRepo    *JourneyRepository
	touchpointRepo *TouchpointRepository
	snapshotRepo   *SnapshotRepository
	ledgerRepo     *LedgerRepository
	syncRunRepo    *SyncRunRepository
	conflictRepo   *ConflictRepository
}

// NewPersistence creates a file persistence layer rooted at the given path.
// A "file://" prefix is accepted and stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.journeyRepo = &JourneyRepository{p: p}
	p.touchpointRepo = &TouchpointRepository{p: p}
	p.snapshotRepo = &SnapshotRepository{p: p}
	p.ledgerRepo = &LedgerRepository{p: p}
	p.syncRunRepo = &SyncRunRepository{p: p}
	p.conflictRepo = &ConflictRepository{p: p}

	return p
}

func (fp *Persistence) JourneyRepository() persistence.JourneyRepository {
	return fp.journeyRepo
}

func (fp *Persistence) TouchpointRepository() persistence.TouchpointRepository {
	return fp.touchpointRepo
}

func (fp *Persistence) SnapshotRepository() persistence.SnapshotRepository {
	return fp.snapshotRepo
}

func (fp *Persistence) LedgerRepository() persistence.LedgerRepository {
	return fp.ledgerRepo
}

func (fp *Persistence) SyncRunRepository() persistence.SyncRunRepository {
	return fp.syncRunRepo
}

func (fp *Persistence) ConflictRepository() persistence.ConflictRepository {
	return fp.conflictRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// readJSON loads one entity file into out. Returns os.ErrNotExist when the
// file is absent. Callers must hold at least a read lock.
func (fp *Persistence) readJSON(dir, id string, out any) error {
	data, err := os.ReadFile(fp.entityPath(dir, id))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", dir, id, err)
	}

	return nil
}

// writeJSON stores one entity file. Callers must hold the write lock.
func (fp *Persistence) writeJSON(dir, id string, in any) error {
	if err := os.MkdirAll(filepath.Join(fp.root, dir), 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", dir, id, err)
	}

	if err := os.WriteFile(fp.entityPath(dir, id), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", dir, id, err)
	}

	return nil
}

func (fp *Persistence) removeFile(dir, id string) error {
	err := os.Remove(fp.entityPath(dir, id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s/%s: %w", dir, id, err)
	}

	return nil
}

func (fp *Persistence) entityPath(dir, id string) string {
	return filepath.Join(fp.root, dir, id+".json")
}

// listIDs returns the entity ids present in dir.
func (fp *Persistence) listIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fp.root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}
