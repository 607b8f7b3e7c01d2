package customdrive

import (
	"context"
	"sync"

	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/pkg/types"
)

// Manager owns one Watcher per custom-drive-enabled user and keeps the
// set current as users enable or disable the feature.
type Manager struct {
	db     *dbstore.Store
	engine types.TreeEngine

	mu       sync.Mutex
	watchers map[string]*Watcher
	cancels  map[string]context.CancelFunc
}

// NewManager constructs an empty custom-drive watcher supervisor.
func NewManager(db *dbstore.Store, engine types.TreeEngine) *Manager {
	return &Manager{
		db:       db,
		engine:   engine,
		watchers: make(map[string]*Watcher),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Enable starts reconciliation and a live watch for user, replacing any
// watcher already running for them.
func (m *Manager) Enable(ctx context.Context, user *types.User) error {
	if !user.CustomDriveEnabled || user.CustomDrivePath == nil {
		return nil
	}

	m.Disable(user.ID)

	w, err := NewWatcher(user.ID, *user.CustomDrivePath, user.CustomDriveIgnorePatterns, m.engine, m.db)
	if err != nil {
		return err
	}
	if err := w.Reconcile(ctx); err != nil {
		logging.WithComponent("customdrive").Error().Err(err).Str("user_id", user.ID).
			Msg("initial reconciliation failed, starting watch anyway")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.watchers[user.ID] = w
	m.cancels[user.ID] = cancel
	m.mu.Unlock()

	go w.Run(runCtx)
	return nil
}

// Disable stops and removes the watcher for userID, if any.
func (m *Manager) Disable(userID string) {
	m.mu.Lock()
	cancel, hasCancel := m.cancels[userID]
	w, hasWatcher := m.watchers[userID]
	delete(m.cancels, userID)
	delete(m.watchers, userID)
	m.mu.Unlock()

	if hasCancel {
		cancel()
	}
	if hasWatcher {
		if err := w.Stop(); err != nil {
			logging.WithComponent("customdrive").Warn().Err(err).Str("user_id", userID).
				Msg("failed to close watcher cleanly")
		}
	}
}

// Shutdown stops every running watcher.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.watchers))
	for id := range m.watchers {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.Disable(id)
	}
}
