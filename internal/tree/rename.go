package tree

import (
	"context"
	"path/filepath"
	"time"

	"github.com/nimbusvault/corestore/pkg/errors"
	"github.com/nimbusvault/corestore/pkg/types"
)

// Rename changes a file or folder's name. For an absolute-path
// (custom-drive) row, the on-disk rename must succeed before the
// database row is updated; it fails with Conflict if the destination
// already exists.
func (e *Engine) Rename(ctx context.Context, userID, fileID, newName string) (*types.File, error) {
	f, err := e.db.GetFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, errors.New(errors.KindNotFound, "file not found").WithComponent("tree")
	}

	if f.IsCustomDrive() {
		dir := filepath.Dir(*f.Path)
		newPath := filepath.Join(dir, newName)

		exists, err := e.customDrive.Stat(ctx, newPath)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, errors.New(errors.KindConflict, "destination already exists").
				WithComponent("tree").WithDetail("path", newPath)
		}
		if err := e.customDrive.Rename(ctx, *f.Path, newPath); err != nil {
			return nil, err
		}
		f.Path = &newPath
	}

	f.Name = newName
	f.Modified = time.Now().UTC()
	if err := e.db.UpdateFile(ctx, f); err != nil {
		return nil, err
	}

	e.invalidate(ctx, userID, f.ID)
	e.emitChange(ctx, userID, types.ChangeUpdated, f.ID, f.ParentID)
	return f, nil
}
