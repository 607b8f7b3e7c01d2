package tree

import (
	"context"
	"path/filepath"
	"time"

	"github.com/nimbusvault/corestore/pkg/errors"
)

// Move reparents each of ids under targetParentID, rejecting a target
// that is the moved folder itself or one of its descendants. Ids are
// handled one at a time. An absolute-path row is renamed on disk before
// its database row is updated. An on-disk failure stops the batch with
// an error, and rows of ids handled before it keep their new parent.
func (e *Engine) Move(ctx context.Context, userID string, ids []string, targetParentID *string) error {
	var targetDir string
	haveTargetDir := false

	for _, id := range ids {
		f, err := e.db.GetFile(ctx, userID, id)
		if err != nil {
			return err
		}
		if f == nil {
			return errors.New(errors.KindNotFound, "file not found").
				WithComponent("tree").WithDetail("id", id)
		}
		if targetParentID != nil {
			descendants, err := e.db.Descendants(ctx, userID, f.ID)
			if err != nil {
				return err
			}
			inside := *targetParentID == f.ID
			for _, d := range descendants {
				inside = inside || d.ID == *targetParentID
			}
			if inside {
				return errors.New(errors.KindInvalidPath, "cannot move a folder into itself or its descendants").
					WithComponent("tree").WithDetail("id", id)
			}
		}

		if f.IsCustomDrive() {
			if !haveTargetDir {
				targetDir, err = e.resolveCustomDriveDir(ctx, userID, targetParentID)
				if err != nil {
					return err
				}
				haveTargetDir = true
			}
			unique, err := e.uniqueFSName(ctx, targetDir, f.Name)
			if err != nil {
				return err
			}
			newPath := filepath.Join(targetDir, unique)
			if err := e.customDrive.Rename(ctx, *f.Path, newPath); err != nil {
				return err
			}
			f.Path = &newPath
			f.Name = unique
		}

		f.ParentID = targetParentID
		f.Modified = time.Now().UTC()
		if err := e.db.UpdateFile(ctx, f); err != nil {
			return err
		}
		e.invalidate(ctx, userID, f.ID)
	}

	e.invalidate(ctx, userID)
	return nil
}
