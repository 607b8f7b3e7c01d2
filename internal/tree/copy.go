package tree

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/nimbusvault/corestore/internal/idgen"
	"github.com/nimbusvault/corestore/pkg/errors"
	"github.com/nimbusvault/corestore/pkg/types"
)

// Copy duplicates each of ids, and their descendants, under
// targetParentID. File bytes are re-materialised at a fresh location
// (a fresh storage key for local-driver files, a fresh on-disk path for
// custom-drive files); folders recurse depth-first. A target that is the
// copied folder itself or one of its descendants is rejected.
func (e *Engine) Copy(ctx context.Context, userID string, ids []string, targetParentID *string) error {
	for _, id := range ids {
		if targetParentID != nil {
			descendants, err := e.db.Descendants(ctx, userID, id)
			if err != nil {
				return err
			}
			inside := *targetParentID == id
			for _, d := range descendants {
				inside = inside || d.ID == *targetParentID
			}
			if inside {
				return errors.New(errors.KindInvalidPath, "cannot copy a folder into itself or its descendants").
					WithComponent("tree").WithDetail("id", id)
			}
		}
		if _, err := e.copyOne(ctx, userID, id, targetParentID); err != nil {
			return err
		}
	}
	e.invalidate(ctx, userID)
	return nil
}

func (e *Engine) copyOne(ctx context.Context, userID, srcID string, destParentID *string) (*types.File, error) {
	src, err := e.db.GetFile(ctx, userID, srcID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errors.New(errors.KindNotFound, "file not found").
			WithComponent("tree").WithDetail("id", srcID)
	}

	if src.Type == types.FileTypeFolder {
		return e.copyFolder(ctx, userID, src, destParentID)
	}
	return e.copyFile(ctx, userID, src, destParentID)
}

func (e *Engine) copyFolder(ctx context.Context, userID string, src *types.File, destParentID *string) (*types.File, error) {
	var destPath *string

	if src.IsCustomDrive() {
		targetDir, err := e.resolveCustomDriveDir(ctx, userID, destParentID)
		if err != nil {
			return nil, err
		}
		unique, err := e.uniqueFSName(ctx, targetDir, src.Name)
		if err != nil {
			return nil, err
		}
		full := filepath.Join(targetDir, unique)
		if err := e.customDrive.Mkdir(ctx, full); err != nil {
			return nil, err
		}
		destPath = &full
	}

	name := src.Name
	if destPath == nil {
		unique, err := e.uniqueDBName(ctx, userID, destParentID, name)
		if err != nil {
			return nil, err
		}
		name = unique
	}

	folder := &types.File{
		UserID:   userID,
		Name:     name,
		Type:     types.FileTypeFolder,
		ParentID: destParentID,
		Path:     destPath,
	}
	created, err := e.db.CreateFile(ctx, folder)
	if err != nil {
		if destPath != nil {
			_ = e.customDrive.Rmdir(ctx, *destPath)
		}
		return nil, err
	}
	if err := e.fixupModified(ctx, created, src.Modified); err != nil {
		return nil, err
	}

	children, err := e.db.ListDirectory(ctx, userID, &src.ID, types.SortByName, types.OrderAsc)
	if err != nil {
		return nil, err
	}
	for i := range children {
		if _, err := e.copyOne(ctx, userID, children[i].ID, &created.ID); err != nil {
			return nil, err
		}
	}

	return created, nil
}

func (e *Engine) copyFile(ctx context.Context, userID string, src *types.File, destParentID *string) (*types.File, error) {
	var destPath *string
	var storageKey string
	var createdAbsPath string

	switch {
	case src.IsCustomDrive():
		targetDir, err := e.resolveCustomDriveDir(ctx, userID, destParentID)
		if err != nil {
			return nil, err
		}
		unique, err := e.uniqueFSName(ctx, targetDir, src.Name)
		if err != nil {
			return nil, err
		}
		full := filepath.Join(targetDir, unique)

		srcFile, err := e.customDrive.Stat(ctx, *src.Path)
		if err != nil {
			return nil, err
		}
		if !srcFile {
			return nil, errors.New(errors.KindNotFound, "source bytes missing").WithComponent("tree")
		}
		r, err := e.openCustomDriveFile(ctx, *src.Path)
		if err != nil {
			return nil, err
		}
		streamErr := e.customDrive.Stream(ctx, full, r)
		if rc, ok := r.(io.Closer); ok {
			rc.Close()
		}
		if streamErr != nil {
			_ = e.customDrive.Remove(ctx, full)
			return nil, streamErr
		}
		createdAbsPath = full
		destPath = &full

	default:
		id, err := idgen.New()
		if err != nil {
			return nil, err
		}
		storageKey = id + filepath.Ext(src.Name)

		srcReader, err := e.local.Get(ctx, *src.Path)
		if err != nil {
			return nil, err
		}
		defer srcReader.Close()

		pr, pw := io.Pipe()
		go func() {
			// Every local-driver storage key holds encrypted bytes (see
			// UploadFile), so the source is always decrypted and
			// re-encrypted under the new key without a plaintext copy.
			_, copyErr := e.stream.CopyEncrypted(pw, srcReader)
			pw.CloseWithError(copyErr)
		}()
		if err := e.local.Put(ctx, storageKey, pr); err != nil {
			return nil, err
		}
		destPath = &storageKey
	}

	name, err := e.uniqueDBName(ctx, userID, destParentID, src.Name)
	if err != nil {
		return nil, err
	}

	f := &types.File{
		UserID:   userID,
		Name:     name,
		Type:     types.FileTypeFile,
		ParentID: destParentID,
		Size:     src.Size,
		MimeType: src.MimeType,
		Path:     destPath,
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
	if err := e.fixupModified(ctx, created, src.Modified); err != nil {
		return nil, err
	}

	return created, nil
}

// fixupModified corrects the modified timestamp the insert stamped on
// the new row, so a copy preserves the source's original timestamp.
func (e *Engine) fixupModified(ctx context.Context, f *types.File, original time.Time) error {
	if f.Modified.Sub(original) < time.Second && original.Sub(f.Modified) < time.Second {
		return nil
	}
	f.Modified = original
	return e.db.UpdateFile(ctx, f)
}

// openCustomDriveFile opens a custom-drive path for reading, via the
// local OS filesystem rather than the blob store (custom-drive bytes
// never pass through the blob store).
func (e *Engine) openCustomDriveFile(ctx context.Context, absPath string) (io.Reader, error) {
	return openFile(absPath)
}
