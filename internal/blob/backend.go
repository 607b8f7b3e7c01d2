// Package blob defines the capability interface the two blob-store
// drivers (local-disk, S3-compatible) implement for §4.C2, and the
// paginated key listing reconciliation (§4.C10) consumes.
package blob

import (
	"context"
	"io"
)

// KeyPage is one restartable page of a ListKeys walk.
type KeyPage struct {
	Keys       []string
	NextToken  string
	HasMore    bool
}

// Backend is the object-level contract both drivers satisfy. Selection
// between them happens once at startup from configuration; callers never
// branch on which driver is in use.
type Backend interface {
	// Put streams src to key. On failure no partial object is left
	// visible under key.
	Put(ctx context.Context, key string, src io.Reader) error

	// Get returns a readable stream for key. Returns a NotFound error if
	// key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// ListKeys returns one page of keys, starting after pageToken (empty
	// for the first page).
	ListKeys(ctx context.Context, pageToken string, pageSize int) (KeyPage, error)

	// Rename moves oldKey to newKey. Best-effort atomic: a local rename
	// on-disk, copy-then-delete on S3. Must not lose bytes on failure.
	Rename(ctx context.Context, oldKey, newKey string) error
}
