// Package customdrive implements custom-drive sync (§4.C11): the
// low-level filesystem primitives the tree engine calls through
// tree.CustomDriveFS, and a per-user watcher that mirrors external
// filesystem changes back into the metadata store.
package customdrive

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/nimbusvault/corestore/internal/tree"
	"github.com/nimbusvault/corestore/pkg/errors"
)

// FS implements tree.CustomDriveFS directly against the local
// filesystem. It has no per-user state; every call takes an absolute
// path already resolved by the caller.
type FS struct{}

var _ tree.CustomDriveFS = (*FS)(nil)

// New constructs a custom-drive filesystem adapter.
func New() *FS { return &FS{} }

func (FS) Mkdir(_ context.Context, absPath string) error {
	if err := os.MkdirAll(absPath, 0o755); err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to create custom-drive directory").
			WithComponent("customdrive")
	}
	return nil
}

func (FS) Rmdir(_ context.Context, absPath string) error {
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.KindInternal, err, "failed to remove custom-drive directory").
			WithComponent("customdrive")
	}
	return nil
}

func (FS) Remove(_ context.Context, absPath string) error {
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.KindInternal, err, "failed to remove custom-drive file").
			WithComponent("customdrive")
	}
	return nil
}

func (FS) Rename(_ context.Context, oldPath, newPath string) error {
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to prepare custom-drive destination").
			WithComponent("customdrive")
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to rename custom-drive entry").
			WithComponent("customdrive")
	}
	return nil
}

func (FS) Stat(_ context.Context, absPath string) (bool, error) {
	_, err := os.Stat(absPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrap(errors.KindInternal, err, "failed to stat custom-drive entry").
		WithComponent("customdrive")
}

func (FS) Stream(_ context.Context, absPath string, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to prepare custom-drive path").
			WithComponent("customdrive")
	}

	tmp := absPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to create custom-drive file").
			WithComponent("customdrive")
	}

	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrap(errors.KindInternal, err, "failed to write custom-drive file").
			WithComponent("customdrive")
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.KindInternal, err, "failed to finalize custom-drive file").
			WithComponent("customdrive")
	}
	if err := os.Rename(tmp, absPath); err != nil {
		os.Remove(tmp)
		return errors.Wrap(errors.KindInternal, err, "failed to publish custom-drive file").
			WithComponent("customdrive")
	}
	return nil
}
