package tree

import (
	"context"
	"sort"
	"time"

	"github.com/nimbusvault/corestore/pkg/types"
)

// Restore clears deleted_at on ids and their deleted descendants.
// Ancestors are processed before descendants so a restored child always
// finds its parent already resolved; each row's parent becomes its
// original parent if that parent still exists and is not itself
// deleted, otherwise root. Name conflicts against the resolved parent
// are resolved with the " (N)" suffix scheme.
func (e *Engine) Restore(ctx context.Context, userID string, ids []string) error {
	var targets []types.File
	depth := make(map[string]int)
	for _, id := range ids {
		f, err := e.db.GetFile(ctx, userID, id)
		if err != nil {
			return err
		}
		if f == nil || f.DeletedAt == nil {
			continue
		}
		targets = append(targets, *f)

		descendants, err := e.db.Descendants(ctx, userID, id)
		if err != nil {
			return err
		}
		for _, d := range descendants {
			df, err := e.db.GetFile(ctx, userID, d.ID)
			if err != nil || df == nil || df.DeletedAt == nil {
				continue
			}
			targets = append(targets, *df)
			if d.Depth > depth[df.ID] {
				depth[df.ID] = d.Depth
			}
		}
	}

	sort.SliceStable(targets, func(i, j int) bool {
		if depth[targets[i].ID] != depth[targets[j].ID] {
			return depth[targets[i].ID] < depth[targets[j].ID]
		}
		if (targets[i].ParentID == nil) != (targets[j].ParentID == nil) {
			return targets[i].ParentID == nil
		}
		return targets[i].ID < targets[j].ID
	})

	now := time.Now().UTC()
	for i := range targets {
		f := &targets[i]

		resolvedParent := f.ParentID
		if resolvedParent != nil {
			parent, err := e.db.GetFile(ctx, userID, *resolvedParent)
			if err != nil {
				return err
			}
			if parent == nil || parent.DeletedAt != nil {
				resolvedParent = nil
			}
		}

		name, err := e.uniqueDBName(ctx, userID, resolvedParent, f.Name)
		if err != nil {
			return err
		}

		f.ParentID = resolvedParent
		f.Name = name
		f.DeletedAt = nil
		f.Modified = now
		if err := e.db.UpdateFile(ctx, f); err != nil {
			return err
		}
		e.emitChange(ctx, userID, types.ChangeRestored, f.ID, resolvedParent)
	}

	e.invalidate(ctx, userID)
	return nil
}
