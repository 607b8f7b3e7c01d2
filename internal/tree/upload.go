package tree

import (
	"context"
	"io"
	"path/filepath"

	"github.com/nimbusvault/corestore/internal/idgen"
	"github.com/nimbusvault/corestore/pkg/types"
)

// UploadFile stores src under parentID. With a custom drive enabled, the
// bytes land directly on the user's own filesystem under an original
// name; otherwise they are encrypted into the local blob store under a
// generated storage key. src is read to the end when the upload
// succeeds; an error return may leave it partly read.
func (e *Engine) UploadFile(ctx context.Context, userID, name string, size int64, mimeType string, parentID *string, src io.Reader) (*types.File, error) {
	user, err := e.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var storedPath *string
	var storageKey string
	var createdAbsPath string

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
		if err := e.customDrive.Stream(ctx, full, src); err != nil {
			_ = e.customDrive.Remove(ctx, full)
			return nil, err
		}
		createdAbsPath = full
		storedPath = &full
		name = unique
	} else {
		id, err := idgen.New()
		if err != nil {
			return nil, err
		}
		storageKey = id + filepath.Ext(name)

		pr, pw := io.Pipe()
		go func() {
			_, encErr := e.stream.EncryptStream(pw, src)
			pw.CloseWithError(encErr)
		}()
		if err := e.local.Put(ctx, storageKey, pr); err != nil {
			return nil, err
		}
		storedPath = &storageKey
	}

	f := &types.File{
		UserID:   userID,
		Name:     name,
		Type:     types.FileTypeFile,
		ParentID: parentID,
		Size:     size,
		MimeType: &mimeType,
		Path:     storedPath,
	}

	created, err := e.db.CreateFile(ctx, f)
	if err != nil {
		if createdAbsPath != "" {
			_ = e.customDrive.Remove(ctx, createdAbsPath)
		} else if storageKey != "" {
			_ = e.local.Delete(ctx, storageKey)
		}
		return nil, err
	}

	e.invalidate(ctx, userID, created.ID)
	e.emitChange(ctx, userID, types.ChangeCreated, created.ID, parentID)
	return created, nil
}
