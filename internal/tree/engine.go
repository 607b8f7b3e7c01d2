// Package tree implements the tree engine (§4.C6): the core mutating
// operations over the metadata store and blob store — create, upload,
// rename, move, copy, soft-delete, restore, permanent delete, and the
// starred/shared flags.
package tree

import (
	"context"
	"io"

	"github.com/nimbusvault/corestore/internal/blob"
	"github.com/nimbusvault/corestore/internal/crypto"
	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/pkg/types"
)

// CacheInvalidator is consulted after every mutation to drop the keys
// the change affects. Implemented by the cache component (§4.C3).
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string)
	InvalidateFile(ctx context.Context, userID, fileID string)
}

// EventEmitter fans out change notifications and audit records.
// Implemented by the event producer (§4.C9).
type EventEmitter interface {
	EmitChange(ctx context.Context, ev types.FileChangeEvent)
	EmitAudit(ctx context.Context, ev types.AuditEvent)
}

// CustomDriveFS performs the on-disk operations a custom-drive row needs:
// directory/file materialisation under a user's own filesystem tree,
// outside the managed blob store. Implemented by §4.C11.
type CustomDriveFS interface {
	Mkdir(ctx context.Context, absPath string) error
	Rmdir(ctx context.Context, absPath string) error
	Remove(ctx context.Context, absPath string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	Stat(ctx context.Context, absPath string) (exists bool, err error)
	Stream(ctx context.Context, absPath string, src io.Reader) error
}

// Engine is the tree engine. It satisfies pkg/types.TreeEngine.
type Engine struct {
	db          *dbstore.Store
	local       blob.Backend
	stream      *crypto.Stream
	cache       CacheInvalidator
	events      EventEmitter
	customDrive CustomDriveFS
}

var _ types.TreeEngine = (*Engine)(nil)

// New constructs a tree engine. customDrive may be nil for deployments
// with no custom-drive users; operations on custom-drive rows then fail
// fast rather than silently no-op.
func New(db *dbstore.Store, local blob.Backend, stream *crypto.Stream, cache CacheInvalidator, events EventEmitter, customDrive CustomDriveFS) *Engine {
	return &Engine{db: db, local: local, stream: stream, cache: cache, events: events, customDrive: customDrive}
}

func (e *Engine) invalidate(ctx context.Context, userID string, fileIDs ...string) {
	if e.cache == nil {
		return
	}
	e.cache.InvalidateUser(ctx, userID)
	for _, id := range fileIDs {
		e.cache.InvalidateFile(ctx, userID, id)
	}
}

func (e *Engine) emitChange(ctx context.Context, userID string, kind types.ChangeKind, fileID string, parentID *string) {
	if e.events == nil {
		return
	}
	e.events.EmitChange(ctx, types.FileChangeEvent{UserID: userID, Kind: kind, FileID: fileID, ParentID: parentID})
}
