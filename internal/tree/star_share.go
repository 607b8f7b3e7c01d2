package tree

import (
	"context"

	"github.com/nimbusvault/corestore/pkg/types"
)

// SetStarred toggles starred on exactly the given ids; unlike shared, it
// does not propagate to descendants.
func (e *Engine) SetStarred(ctx context.Context, userID string, ids []string, starred bool) error {
	if err := e.db.SetStarred(ctx, userID, ids, starred); err != nil {
		return err
	}
	e.invalidate(ctx, userID)
	for _, id := range ids {
		e.emitChange(ctx, userID, types.ChangeUpdated, id, nil)
	}
	return nil
}

// SetShared toggles shared on ids and propagates the same value to every
// descendant.
func (e *Engine) SetShared(ctx context.Context, userID string, ids []string, shared bool) error {
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

	if err := e.db.SetShared(ctx, userID, all, shared); err != nil {
		return err
	}
	e.invalidate(ctx, userID)
	for _, id := range ids {
		e.emitChange(ctx, userID, types.ChangeUpdated, id, nil)
	}
	return nil
}
