package customdrive

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/pkg/types"
)

// Watcher mirrors external changes under one user's custom-drive root
// back into the metadata store, using the tree engine so every mirrored
// change still gets cache invalidation and change events for free.
type Watcher struct {
	userID   string
	root     string
	patterns []string
	engine   types.TreeEngine
	db       *dbstore.Store

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	byPath  map[string]string // absPath -> file id, seeded and kept current
	stopped bool
}

// NewWatcher constructs a watcher for one user. Reconcile should be called
// once before Run to establish the initial byPath index and catch up on
// any drift that accumulated while no watcher was running.
func NewWatcher(userID, root string, patterns []string, engine types.TreeEngine, db *dbstore.Store) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		userID:   userID,
		root:     root,
		patterns: patterns,
		engine:   engine,
		db:       db,
		fsw:      fsw,
		byPath:   make(map[string]string),
	}, nil
}

// Reconcile performs a full diff between root and the rows already
// recorded for userID: missing rows are created/uploaded, rows whose
// path no longer exists on disk are soft-deleted. It also arms the
// watcher on every directory under root so subsequent Run events fire.
func (w *Watcher) Reconcile(ctx context.Context) error {
	existing, err := w.db.ListCustomDriveFiles(ctx, w.userID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	byPath := make(map[string]*types.File, len(existing))
	for i := range existing {
		f := &existing[i]
		if f.Path != nil {
			byPath[*f.Path] = f
		}
	}
	w.mu.Unlock()

	seen := make(map[string]struct{}, len(existing))

	err = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == w.root {
			return w.fsw.Add(path)
		}
		if ignored(w.root, path, w.patterns) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		seen[path] = struct{}{}
		parentID := w.parentIDFor(path, byPath)

		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				logging.WithComponent("customdrive").Warn().Err(err).Str("path", path).
					Msg("reconcile: failed to arm watch on directory")
			}
			if existing, ok := byPath[path]; ok {
				w.recordID(path, existing.ID)
				return nil
			}
			folder, err := w.engine.CreateFolder(ctx, w.userID, d.Name(), parentID)
			if err != nil {
				logging.WithComponent("customdrive").Error().Err(err).Str("path", path).
					Msg("reconcile: failed to materialize directory")
				return nil
			}
			w.recordID(path, folder.ID)
			return nil
		}

		if existing, ok := byPath[path]; ok {
			w.recordID(path, existing.ID)
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		f, openErr := os.Open(path)
		if openErr != nil {
			logging.WithComponent("customdrive").Error().Err(openErr).Str("path", path).
				Msg("reconcile: failed to open file for upload")
			return nil
		}
		uploaded, err := w.engine.UploadFile(ctx, w.userID, d.Name(), info.Size(), "", parentID, f)
		f.Close()
		if err != nil {
			logging.WithComponent("customdrive").Error().Err(err).Str("path", path).
				Msg("reconcile: failed to materialize file")
			return nil
		}
		w.recordID(path, uploaded.ID)
		return nil
	})
	if err != nil {
		return err
	}

	var toDelete []string
	for path, f := range byPath {
		if _, ok := seen[path]; !ok {
			toDelete = append(toDelete, f.ID)
		}
	}
	if len(toDelete) > 0 {
		if err := w.engine.SoftDelete(ctx, w.userID, toDelete); err != nil {
			logging.WithComponent("customdrive").Error().Err(err).
				Msg("reconcile: failed to soft-delete rows for entries removed on disk")
		}
	}

	return nil
}

func (w *Watcher) parentIDFor(path string, byPath map[string]*types.File) *string {
	parent := filepath.Dir(path)
	if parent == w.root {
		return nil
	}
	w.mu.Lock()
	id, ok := w.byPath[parent]
	w.mu.Unlock()
	if ok {
		return &id
	}
	if f, ok := byPath[parent]; ok {
		return &f.ID
	}
	return nil
}

func (w *Watcher) recordID(path, id string) {
	w.mu.Lock()
	w.byPath[path] = id
	w.mu.Unlock()
}

// Run processes fsnotify events until ctx is cancelled or Stop is
// called. Each event is translated into the matching tree engine
// operation; per-event errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.WithComponent("customdrive").Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if ignored(w.root, ev.Name, w.patterns) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		w.handleCreate(ctx, ev.Name)
	case ev.Op&fsnotify.Write != 0:
		w.handleWrite(ctx, ev.Name)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.handleRemove(ctx, ev.Name)
	}
}

func (w *Watcher) handleCreate(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	parentID := w.parentIDFor(path, nil)

	if info.IsDir() {
		if err := w.fsw.Add(path); err != nil {
			logging.WithComponent("customdrive").Warn().Err(err).Str("path", path).
				Msg("failed to arm watch on new directory")
		}
		folder, err := w.engine.CreateFolder(ctx, w.userID, filepath.Base(path), parentID)
		if err != nil {
			logging.WithComponent("customdrive").Error().Err(err).Str("path", path).
				Msg("failed to materialize new directory")
			return
		}
		w.recordID(path, folder.ID)
		return
	}
	w.handleWrite(ctx, path)
}

func (w *Watcher) handleWrite(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	_, known := w.byPath[path]
	w.mu.Unlock()
	if known {
		// TreeEngine has no replace-content operation; re-materializing an
		// already-mirrored file's overwritten bytes is out of scope.
		return
	}

	parentID := w.parentIDFor(path, nil)
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	var src io.Reader = f
	uploaded, err := w.engine.UploadFile(ctx, w.userID, filepath.Base(path), info.Size(), "", parentID, src)
	if err != nil {
		logging.WithComponent("customdrive").Error().Err(err).Str("path", path).
			Msg("failed to materialize file write")
		return
	}
	w.recordID(path, uploaded.ID)
}

func (w *Watcher) handleRemove(ctx context.Context, path string) {
	w.mu.Lock()
	id, ok := w.byPath[path]
	delete(w.byPath, path)
	w.mu.Unlock()
	if !ok {
		return
	}
	if err := w.engine.SoftDelete(ctx, w.userID, []string{id}); err != nil {
		logging.WithComponent("customdrive").Error().Err(err).Str("path", path).
			Msg("failed to soft-delete row for removed entry")
	}
}

// Stop releases the underlying fsnotify watch.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()
	return w.fsw.Close()
}
