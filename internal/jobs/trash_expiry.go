// Package jobs implements the background schedulers of §4.C10: trash
// expiry and blob/metadata orphan reconciliation. Both run as
// ticker-driven loops, serialized per process, tolerating per-item
// failures by logging and continuing rather than aborting a whole run.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/internal/tree"
	"github.com/nimbusvault/corestore/pkg/types"
)

const defaultTrashRetention = 15 * 24 * time.Hour

// TrashExpiry permanently deletes trash rows (and their bytes) once
// they have sat soft-deleted past the retention window.
type TrashExpiry struct {
	db        *dbstore.Store
	engine    *tree.Engine
	retention time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	started bool
}

// NewTrashExpiry constructs a scheduler with the given retention
// window; a non-positive value falls back to the 15-day default.
func NewTrashExpiry(db *dbstore.Store, engine *tree.Engine, retention time.Duration) *TrashExpiry {
	if retention <= 0 {
		retention = defaultTrashRetention
	}
	return &TrashExpiry{db: db, engine: engine, retention: retention}
}

// Start runs RunOnce every interval until Stop is called or ctx is
// cancelled. Calling Start twice is a no-op.
func (t *TrashExpiry) Start(ctx context.Context, interval time.Duration) {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.stopCh = make(chan struct{})
	t.mu.Unlock()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stopCh:
				return
			case <-ticker.C:
				t.RunOnce(ctx)
			}
		}
	}()
}

// Stop halts a running scheduler. Safe to call even if Start was never
// called.
func (t *TrashExpiry) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	close(t.stopCh)
	t.started = false
}

// RunOnce expires every trash row older than the retention window in a
// single pass, grouped per user so each purge batch stays within one
// tenant's tree.
func (t *TrashExpiry) RunOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-t.retention)

	expired, err := t.db.ExpiredTrash(ctx, cutoff)
	if err != nil {
		logging.WithComponent("jobs").Error().Err(err).Msg("trash expiry: failed to list expired rows")
		return
	}
	if len(expired) == 0 {
		return
	}

	roots := rootsPerUser(expired)
	for userID, ids := range roots {
		if err := t.engine.PurgeDelete(ctx, userID, ids); err != nil {
			logging.WithComponent("jobs").Error().Err(err).
				Str("user_id", userID).
				Msg("trash expiry: purge failed for user, continuing with others")
		}
	}
}

// rootsPerUser groups expired rows by owner and keeps only the
// topmost id in each user's expired set — a row whose parent is also
// in the expired set is purged transitively once its ancestor is
// purged, so listing it separately would be redundant.
func rootsPerUser(files []types.File) map[string][]string {
	byUser := make(map[string]map[string]*types.File)
	for i := range files {
		f := &files[i]
		if byUser[f.UserID] == nil {
			byUser[f.UserID] = make(map[string]*types.File)
		}
		byUser[f.UserID][f.ID] = f
	}

	roots := make(map[string][]string, len(byUser))
	for userID, set := range byUser {
		for id, f := range set {
			if f.ParentID != nil {
				if _, parentExpired := set[*f.ParentID]; parentExpired {
					continue
				}
			}
			roots[userID] = append(roots[userID], id)
		}
	}
	return roots
}
