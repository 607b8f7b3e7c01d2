package tree

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nimbusvault/corestore/pkg/errors"
)

// maxDuplicateSuffix bounds the " (N)" naming scheme; beyond this the
// caller gets a Conflict rather than looping forever.
const maxDuplicateSuffix = 10000

// uniqueDBName returns name, or name suffixed with " (N)", such that no
// non-deleted sibling under parentID already has that name.
func (e *Engine) uniqueDBName(ctx context.Context, userID string, parentID *string, name string) (string, error) {
	count, err := e.db.CountSiblingsByName(ctx, userID, parentID, name)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return name, nil
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 1; n <= maxDuplicateSuffix; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
		count, err := e.db.CountSiblingsByName(ctx, userID, parentID, candidate)
		if err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", errors.New(errors.KindConflict, "too many duplicate names").
		WithComponent("tree").WithDetail("name", name)
}

// uniqueFSName is the same scheme applied against the filesystem, for
// custom-drive destinations where the DB has no visibility into
// manually-created files.
func (e *Engine) uniqueFSName(ctx context.Context, dir, name string) (string, error) {
	candidate := name
	exists, err := e.customDrive.Stat(ctx, filepath.Join(dir, candidate))
	if err != nil {
		return "", err
	}
	if !exists {
		return candidate, nil
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for n := 1; n <= maxDuplicateSuffix; n++ {
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
		exists, err := e.customDrive.Stat(ctx, filepath.Join(dir, candidate))
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errors.New(errors.KindConflict, "too many duplicate names").
		WithComponent("tree").WithDetail("name", name)
}
