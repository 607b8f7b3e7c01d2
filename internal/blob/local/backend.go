// Package local implements the blob.Backend contract over a fixed
// upload_root directory on local disk.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/nimbusvault/corestore/internal/blob"
	"github.com/nimbusvault/corestore/internal/pathresolver"
	"github.com/nimbusvault/corestore/pkg/errors"
)

// Backend stores every key as a file under root, joined via
// pathresolver.SafeJoin so no key can escape root through traversal.
type Backend struct {
	root string
}

// New returns a local-disk backend rooted at root. root must already
// exist.
func New(root string) (*Backend, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "upload root is not accessible").
			WithComponent("blob.local")
	}
	if !info.IsDir() {
		return nil, errors.New(errors.KindInternal, "upload root is not a directory").
			WithComponent("blob.local")
	}
	return &Backend{root: root}, nil
}

var _ blob.Backend = (*Backend)(nil)

func (b *Backend) resolve(key string) (string, error) {
	return pathresolver.SafeJoin(b.root, key)
}

// Put writes src to a temporary sibling file and renames it into place,
// so a reader never observes a partially written object.
func (b *Backend) Put(ctx context.Context, key string, src io.Reader) error {
	target, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to create parent directory").
			WithComponent("blob.local")
	}

	tmp := target + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to create temp object").
			WithComponent("blob.local")
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(errors.KindIntegrityError, err, "failed to write object").
			WithComponent("blob.local")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.KindIntegrityError, err, "failed to flush object").
			WithComponent("blob.local")
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.KindInternal, err, "failed to publish object").
			WithComponent("blob.local")
	}
	return nil
}

// Get opens key for reading.
func (b *Backend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.KindNotFound, err, "object not found").
				WithComponent("blob.local").WithDetail("key", key)
		}
		return nil, errors.Wrap(errors.KindInternal, err, "failed to open object").
			WithComponent("blob.local")
	}
	return f, nil
}

// Delete removes key. Absence is not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	path, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.KindInternal, err, "failed to delete object").
			WithComponent("blob.local")
	}
	return nil
}

// Exists reports whether key is present.
func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	path, err := b.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(errors.KindInternal, err, "failed to stat object").
			WithComponent("blob.local")
	}
	return true, nil
}

// ListKeys walks root lexically, using the previous page's last key as
// the resume token so the walk can restart after an interruption.
func (b *Backend) ListKeys(ctx context.Context, pageToken string, pageSize int) (blob.KeyPage, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}

	var all []string
	err := filepath.WalkDir(b.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if filepath.Ext(rel) == ".tmp" {
			return nil
		}
		all = append(all, rel)
		return nil
	})
	if err != nil {
		return blob.KeyPage{}, errors.Wrap(errors.KindInternal, err, "failed to walk upload root").
			WithComponent("blob.local")
	}
	sort.Strings(all)

	start := 0
	if pageToken != "" {
		idx := sort.SearchStrings(all, pageToken)
		if idx < len(all) && all[idx] == pageToken {
			idx++
		}
		start = idx
	}
	if start > len(all) {
		start = len(all)
	}

	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	page := blob.KeyPage{Keys: all[start:end]}
	if end < len(all) {
		page.HasMore = true
		page.NextToken = all[end-1]
	}
	return page, nil
}

// Rename moves oldKey to newKey atomically on the same filesystem.
func (b *Backend) Rename(ctx context.Context, oldKey, newKey string) error {
	oldPath, err := b.resolve(oldKey)
	if err != nil {
		return err
	}
	newPath, err := b.resolve(newKey)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to create destination directory").
			WithComponent("blob.local")
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to rename object").
			WithComponent("blob.local")
	}
	return nil
}
