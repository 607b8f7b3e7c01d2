package tree

import (
	"context"
	"path/filepath"

	"github.com/nimbusvault/corestore/pkg/types"
)

// CreateFolder creates a folder row under parentID. If the owning user
// has a custom drive enabled, a real directory is also materialised and
// the row carries its absolute path; on any failure after the directory
// is created, it is removed and no row is inserted.
func (e *Engine) CreateFolder(ctx context.Context, userID, name string, parentID *string) (*types.File, error) {
	user, err := e.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var absPath *string
	var createdDir string

	if user != nil && user.CustomDriveEnabled && user.CustomDrivePath != nil {
		parentDir, err := e.resolveCustomDriveDir(ctx, userID, parentID)
		if err != nil {
			return nil, err
		}
		unique, err := e.uniqueFSName(ctx, parentDir, name)
		if err != nil {
			return nil, err
		}
		full := filepath.Join(parentDir, unique)
		if err := e.customDrive.Mkdir(ctx, full); err != nil {
			return nil, err
		}
		createdDir = full
		absPath = &full
		name = unique
	} else {
		unique, err := e.uniqueDBName(ctx, userID, parentID, name)
		if err != nil {
			return nil, err
		}
		name = unique
	}

	f := &types.File{
		UserID:   userID,
		Name:     name,
		Type:     types.FileTypeFolder,
		ParentID: parentID,
		Path:     absPath,
	}

	created, err := e.db.CreateFile(ctx, f)
	if err != nil {
		if createdDir != "" {
			_ = e.customDrive.Rmdir(ctx, createdDir)
		}
		return nil, err
	}

	e.invalidate(ctx, userID, created.ID)
	e.emitChange(ctx, userID, types.ChangeCreated, created.ID, parentID)
	return created, nil
}

// resolveCustomDriveDir resolves a folder id to its absolute on-disk
// directory, or the custom-drive root when parentID is nil.
func (e *Engine) resolveCustomDriveDir(ctx context.Context, userID string, parentID *string) (string, error) {
	if parentID == nil {
		user, err := e.db.GetUserByID(ctx, userID)
		if err != nil {
			return "", err
		}
		return *user.CustomDrivePath, nil
	}
	parent, err := e.db.GetFile(ctx, userID, *parentID)
	if err != nil {
		return "", err
	}
	if parent == nil || parent.Path == nil {
		user, err := e.db.GetUserByID(ctx, userID)
		if err != nil {
			return "", err
		}
		return *user.CustomDrivePath, nil
	}
	return *parent.Path, nil
}
