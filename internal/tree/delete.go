package tree

import (
	"context"
	"sort"

	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/pkg/types"
)

// SoftDelete marks ids and all their descendants as deleted.
func (e *Engine) SoftDelete(ctx context.Context, userID string, ids []string) error {
	all := append([]string(nil), ids...)
	for _, id := range ids {
		descendants, err := e.db.Descendants(ctx, userID, id)
		if err != nil {
			return err
		}
		for _, d := range descendants {
			all = append(all, d.ID)
		}
	}

	if err := e.db.SoftDeleteByIDs(ctx, userID, all); err != nil {
		return err
	}

	e.invalidate(ctx, userID)
	for _, id := range ids {
		e.emitChange(ctx, userID, types.ChangeDeleted, id, nil)
	}
	return nil
}

// PurgeDelete permanently removes ids and their descendants: bytes
// first (tolerating already-missing blobs), then rows. Custom-drive
// folders are removed deepest-first via rmdir, which only succeeds on
// an empty directory.
func (e *Engine) PurgeDelete(ctx context.Context, userID string, ids []string) error {
	for _, rootID := range ids {
		if err := e.purgeOne(ctx, userID, rootID); err != nil {
			return err
		}
		e.emitChange(ctx, userID, types.ChangeDeleted, rootID, nil)
	}
	e.invalidate(ctx, userID)
	return nil
}

func (e *Engine) purgeOne(ctx context.Context, userID, rootID string) error {
	root, err := e.db.GetFile(ctx, userID, rootID)
	if err != nil {
		return err
	}
	if root == nil {
		return nil
	}

	descendants, err := e.db.Descendants(ctx, userID, rootID)
	if err != nil {
		return err
	}

	all := append([]types.File{*root}, e.loadAll(ctx, userID, descendants)...)

	// Deepest-first so a custom-drive folder's children are gone before
	// its own rmdir is attempted.
	sort.Slice(all, func(i, j int) bool { return depthOf(all[i].ID, descendants, rootID) > depthOf(all[j].ID, descendants, rootID) })

	var ids []string
	for _, f := range all {
		ids = append(ids, f.ID)
		if f.Path == nil {
			continue
		}
		if f.IsCustomDrive() {
			if f.Type == types.FileTypeFolder {
				_ = e.customDrive.Rmdir(ctx, *f.Path)
			} else {
				_ = e.customDrive.Remove(ctx, *f.Path)
			}
		} else if f.Type == types.FileTypeFile {
			_ = e.local.Delete(ctx, *f.Path)
		}
	}

	return e.db.PermanentDeleteByIDs(ctx, userID, ids)
}

func (e *Engine) loadAll(ctx context.Context, userID string, descendants []dbstore.DescendantEntry) []types.File {
	var files []types.File
	for _, d := range descendants {
		f, err := e.db.GetFile(ctx, userID, d.ID)
		if err != nil || f == nil {
			continue
		}
		files = append(files, *f)
	}
	return files
}

func depthOf(id string, descendants []dbstore.DescendantEntry, rootID string) int {
	if id == rootID {
		return 0
	}
	for _, d := range descendants {
		if d.ID == id {
			return d.Depth
		}
	}
	return 0
}
