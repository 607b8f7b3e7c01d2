package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusvault/corestore/internal/blob"
	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/internal/logging"
)

const listKeysPageSize = 1000

// OrphanReconciler diffs a blob backend's keys against the rows that
// claim to own them and acts on both directions: a blob with no owning
// row is deleted; a row whose blob is missing is logged and the row is
// kept, not deleted (its bytes are
// unrecoverable; deletion of the row itself is left to an operator,
// since silently dropping metadata a user may still reference is worse
// than a dangling reference).
type OrphanReconciler struct {
	db      *dbstore.Store
	backend blob.Backend

	mu      sync.Mutex
	stopCh  chan struct{}
	started bool
}

// NewOrphanReconciler constructs a reconciler bound to one blob backend.
// A deployment with both a local and an S3 backend in rotation runs one
// reconciler per backend.
func NewOrphanReconciler(db *dbstore.Store, backend blob.Backend) *OrphanReconciler {
	return &OrphanReconciler{db: db, backend: backend}
}

func (r *OrphanReconciler) Start(ctx context.Context, interval time.Duration) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.RunOnce(ctx)
			}
		}
	}()
}

func (r *OrphanReconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	close(r.stopCh)
	r.started = false
}

// RunOnce performs one full reconciliation pass: page through every
// blob key the backend holds, and separately load every row that
// claims a driver-backed key, then diff the two sets.
func (r *OrphanReconciler) RunOnce(ctx context.Context) {
	refs, err := r.db.DriverBackedKeys(ctx)
	if err != nil {
		logging.WithComponent("jobs").Error().Err(err).Msg("orphan reconciler: failed to list owned keys")
		return
	}
	owned := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		owned[ref.Key] = struct{}{}
	}

	seen := make(map[string]struct{}, len(refs))
	pageToken := ""
	for {
		page, err := r.backend.ListKeys(ctx, pageToken, listKeysPageSize)
		if err != nil {
			logging.WithComponent("jobs").Error().Err(err).Msg("orphan reconciler: failed to list backend keys")
			return
		}

		for _, key := range page.Keys {
			seen[key] = struct{}{}
			if _, ok := owned[key]; ok {
				continue
			}
			if err := r.backend.Delete(ctx, key); err != nil {
				logging.WithComponent("jobs").Error().Err(err).
					Str("key", key).
					Msg("orphan reconciler: failed to delete orphaned blob, will retry next pass")
				continue
			}
			logging.WithComponent("jobs").Warn().Str("key", key).Msg("orphan reconciler: deleted blob with no owning row")
		}

		if !page.HasMore {
			break
		}
		pageToken = page.NextToken
	}

	for _, ref := range refs {
		if _, ok := seen[ref.Key]; ok {
			continue
		}
		logging.WithComponent("jobs").Warn().
			Str("file_id", ref.FileID).
			Str("key", ref.Key).
			Msg("orphan reconciler: row references a blob the backend does not have")
	}
}
