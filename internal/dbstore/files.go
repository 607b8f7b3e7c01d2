package dbstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nimbusvault/corestore/internal/idgen"
	"github.com/nimbusvault/corestore/pkg/errors"
	"github.com/nimbusvault/corestore/pkg/types"
)

const fileColumns = `id, user_id, name, type, parent_id, size, mime_type, path, starred, shared, modified, deleted_at`

const (
	insertFileSQL = `
		INSERT INTO files (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	selectFileByIDSQL = `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2`

	updateFileSQL = `
		UPDATE files SET name = $3, parent_id = $4, size = $5, mime_type = $6, path = $7,
			starred = $8, shared = $9, modified = $10, deleted_at = $11
		WHERE id = $1 AND user_id = $2`

	softDeleteFilesSQL    = `UPDATE files SET deleted_at = $3, modified = $3 WHERE user_id = $1 AND id = ANY($2)`
	restoreFilesSQL       = `UPDATE files SET deleted_at = NULL, modified = $3 WHERE user_id = $1 AND id = ANY($2)`
	purgeDeleteFilesSQL   = `DELETE FROM files WHERE user_id = $1 AND id = ANY($2)`
	setStarredFilesSQL    = `UPDATE files SET starred = $3 WHERE user_id = $1 AND id = ANY($2)`
	setSharedFilesSQL     = `UPDATE files SET shared = $3 WHERE user_id = $1 AND id = ANY($2)`
	countSiblingsByNameSQL = `
		SELECT COUNT(*) FROM files
		WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND name = $3 AND deleted_at IS NULL`

	// descendants walks the tree from a root folder down, used by move/copy
	// validation (no folder may become its own descendant) and by
	// permanent-delete ordering (deepest first).
	descendantsSQL = `
		WITH RECURSIVE descendants AS (
			SELECT id, parent_id, type, 0 AS depth FROM files WHERE id = $2 AND user_id = $1
			UNION ALL
			SELECT f.id, f.parent_id, f.type, d.depth + 1
			FROM files f JOIN descendants d ON f.parent_id = d.id
			WHERE f.user_id = $1
		)
		SELECT id, depth FROM descendants WHERE id != $2 ORDER BY depth DESC`

	folderSizeSQL = `
		WITH RECURSIVE descendants AS (
			SELECT id FROM files WHERE id = $2 AND user_id = $1
			UNION ALL
			SELECT f.id FROM files f JOIN descendants d ON f.parent_id = d.id WHERE f.user_id = $1
		)
		SELECT COALESCE(SUM(size), 0) FROM files
		WHERE user_id = $1 AND id IN (SELECT id FROM descendants) AND type = 'file' AND deleted_at IS NULL`

	searchByNameSQL = `
		SELECT ` + fileColumns + ` FROM files
		WHERE user_id = $1 AND deleted_at IS NULL
		  AND (lower(name) LIKE (lower($2) || '%')
		       OR (char_length($2) > 2 AND similarity(lower(name), lower($2)) > 0.15))
		ORDER BY similarity(lower(name), lower($2)) DESC
		LIMIT $3`

	statsSQL = `
		SELECT
			COUNT(*) FILTER (WHERE type = 'file' AND deleted_at IS NULL),
			COUNT(*) FILTER (WHERE type = 'folder' AND deleted_at IS NULL),
			COUNT(*) FILTER (WHERE shared AND deleted_at IS NULL),
			COUNT(*) FILTER (WHERE starred AND deleted_at IS NULL)
		FROM files WHERE user_id = $1`
)

// sortColumns whitelists the columns a caller-supplied SortField may
// translate to; never interpolate SortField directly into SQL.
var sortColumns = map[types.SortField]string{
	types.SortByName:      "name",
	types.SortBySize:      "size",
	types.SortByModified:  "modified",
	types.SortByDeletedAt: "deleted_at",
}

func orderClause(sortBy types.SortField, order types.SortOrder) (string, error) {
	col, ok := sortColumns[sortBy]
	if !ok {
		return "", errors.New(errors.KindInternal, "unknown sort field").WithComponent("dbstore")
	}
	dir := "ASC"
	if order == types.OrderDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s, id ASC", col, dir), nil
}

// CreateFile inserts a new file or folder row, generating its id.
func (s *Store) CreateFile(ctx context.Context, f *types.File) (*types.File, error) {
	id, err := idgen.New()
	if err != nil {
		return nil, err
	}
	f.ID = id
	if f.Modified.IsZero() {
		f.Modified = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, insertFileSQL, f.ID, f.UserID, f.Name, f.Type, f.ParentID,
		f.Size, f.MimeType, f.Path, f.Starred, f.Shared, f.Modified, f.DeletedAt)
	if err != nil {
		return nil, translateError(err, "CreateFile")
	}
	return f, nil
}

func scanFile(row *sql.Row) (*types.File, error) {
	var f types.File
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Type, &f.ParentID, &f.Size, &f.MimeType,
		&f.Path, &f.Starred, &f.Shared, &f.Modified, &f.DeletedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFileRows(rows *sql.Rows) ([]types.File, error) {
	defer rows.Close()
	var files []types.File
	for rows.Next() {
		var f types.File
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.Type, &f.ParentID, &f.Size, &f.MimeType,
			&f.Path, &f.Starred, &f.Shared, &f.Modified, &f.DeletedAt); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetFile returns the file, or nil if it does not exist or is not owned
// by userID.
func (s *Store) GetFile(ctx context.Context, userID, fileID string) (*types.File, error) {
	f, err := scanFile(s.db.QueryRowContext(ctx, selectFileByIDSQL, fileID, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateError(err, "GetFile")
	}
	return f, nil
}

// UpdateFile persists the full mutable field set of f.
func (s *Store) UpdateFile(ctx context.Context, f *types.File) error {
	_, err := s.db.ExecContext(ctx, updateFileSQL, f.ID, f.UserID, f.Name, f.ParentID, f.Size,
		f.MimeType, f.Path, f.Starred, f.Shared, f.Modified, f.DeletedAt)
	if err != nil {
		return translateError(err, "UpdateFile")
	}
	return nil
}

// ListDirectory lists the immediate, non-deleted children of parentID
// (nil for the root).
func (s *Store) ListDirectory(ctx context.Context, userID string, parentID *string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	clause, err := orderClause(sortBy, order)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM files WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND deleted_at IS NULL %s`, fileColumns, clause)
	rows, err := s.db.QueryContext(ctx, query, userID, parentID)
	if err != nil {
		return nil, translateError(err, "ListDirectory")
	}
	files, err := scanFileRows(rows)
	if err != nil {
		return nil, translateError(err, "ListDirectory")
	}
	return files, nil
}

// listByFlag is the shared implementation behind ListStarred/ListShared/ListTrash.
func (s *Store) listByFlag(ctx context.Context, userID, predicate string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	clause, err := orderClause(sortBy, order)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT %s FROM files WHERE user_id = $1 AND %s %s`, fileColumns, predicate, clause)
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, translateError(err, "listByFlag")
	}
	files, err := scanFileRows(rows)
	if err != nil {
		return nil, translateError(err, "listByFlag")
	}
	return files, nil
}

const listCustomDriveFilesSQL = `SELECT ` + fileColumns + ` FROM files WHERE user_id = $1 AND path LIKE '/%' AND deleted_at IS NULL`

// ListCustomDriveFiles returns every non-deleted row for userID backed
// by an absolute custom-drive path, for the watcher's startup
// reconciliation pass.
func (s *Store) ListCustomDriveFiles(ctx context.Context, userID string) ([]types.File, error) {
	rows, err := s.db.QueryContext(ctx, listCustomDriveFilesSQL, userID)
	if err != nil {
		return nil, translateError(err, "ListCustomDriveFiles")
	}
	defer rows.Close()
	return scanFileRows(rows)
}

func (s *Store) ListStarred(ctx context.Context, userID string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	return s.listByFlag(ctx, userID, "starred AND deleted_at IS NULL", sortBy, order)
}

func (s *Store) ListShared(ctx context.Context, userID string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	return s.listByFlag(ctx, userID, "shared AND deleted_at IS NULL", sortBy, order)
}

func (s *Store) ListTrash(ctx context.Context, userID string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	return s.listByFlag(ctx, userID, "deleted_at IS NOT NULL", sortBy, order)
}

const driverBackedKeysSQL = `SELECT id, path FROM files WHERE type = 'file' AND path IS NOT NULL AND path NOT LIKE '/%'`

// StorageKeyRef pairs a file row's id with the driver-backed blob key
// it owns (relative paths only; custom-drive absolute paths are
// excluded, since those live outside any blob.Backend).
type StorageKeyRef struct {
	FileID string
	Key    string
}

// DriverBackedKeys returns every (file id, blob key) pair for rows
// whose bytes live in a blob.Backend, across all users and regardless
// of trash state. Used by the orphan reconciler to diff DB rows
// against what a backend actually holds.
func (s *Store) DriverBackedKeys(ctx context.Context) ([]StorageKeyRef, error) {
	rows, err := s.db.QueryContext(ctx, driverBackedKeysSQL)
	if err != nil {
		return nil, translateError(err, "DriverBackedKeys")
	}
	defer rows.Close()

	var refs []StorageKeyRef
	for rows.Next() {
		var ref StorageKeyRef
		if err := rows.Scan(&ref.FileID, &ref.Key); err != nil {
			return nil, translateError(err, "DriverBackedKeys")
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "DriverBackedKeys")
	}
	return refs, nil
}

const expiredTrashSQL = `SELECT ` + fileColumns + ` FROM files WHERE deleted_at IS NOT NULL AND deleted_at < $1`

// ExpiredTrash returns every soft-deleted row across all users whose
// deleted_at predates cutoff, regardless of owner. Callers group the
// result by UserID before acting on it.
func (s *Store) ExpiredTrash(ctx context.Context, cutoff time.Time) ([]types.File, error) {
	rows, err := s.db.QueryContext(ctx, expiredTrashSQL, cutoff)
	if err != nil {
		return nil, translateError(err, "ExpiredTrash")
	}
	defer rows.Close()
	return scanFileRows(rows)
}

// DescendantEntry is one row of a descendants walk, deepest-first.
type DescendantEntry struct {
	ID    string
	Depth int
}

// Descendants returns every row beneath rootID (exclusive), ordered
// deepest-first so callers can safely delete bottom-up.
func (s *Store) Descendants(ctx context.Context, userID, rootID string) ([]DescendantEntry, error) {
	rows, err := s.db.QueryContext(ctx, descendantsSQL, userID, rootID)
	if err != nil {
		return nil, translateError(err, "Descendants")
	}
	defer rows.Close()

	var entries []DescendantEntry
	for rows.Next() {
		var e DescendantEntry
		if err := rows.Scan(&e.ID, &e.Depth); err != nil {
			return nil, translateError(err, "Descendants")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FolderSize sums the size of every non-deleted file beneath folderID,
// for on-demand folder-size computation in listings.
func (s *Store) FolderSize(ctx context.Context, userID, folderID string) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, folderSizeSQL, userID, folderID).Scan(&total); err != nil {
		return 0, translateError(err, "FolderSize")
	}
	return total, nil
}

// SoftDeleteByIDs marks the given ids as deleted as of now.
func (s *Store) SoftDeleteByIDs(ctx context.Context, userID string, ids []string) error {
	_, err := s.db.ExecContext(ctx, softDeleteFilesSQL, userID, idsArray(ids), time.Now().UTC())
	if err != nil {
		return translateError(err, "SoftDeleteByIDs")
	}
	return nil
}

// RestoreByIDs clears deleted_at for the given ids.
func (s *Store) RestoreByIDs(ctx context.Context, userID string, ids []string) error {
	_, err := s.db.ExecContext(ctx, restoreFilesSQL, userID, idsArray(ids), time.Now().UTC())
	if err != nil {
		return translateError(err, "RestoreByIDs")
	}
	return nil
}

// PermanentDeleteByIDs removes rows outright. Callers must pass ids in
// deepest-first order (see Descendants) so no foreign key is violated.
func (s *Store) PermanentDeleteByIDs(ctx context.Context, userID string, ids []string) error {
	_, err := s.db.ExecContext(ctx, purgeDeleteFilesSQL, userID, idsArray(ids))
	if err != nil {
		return translateError(err, "PermanentDeleteByIDs")
	}
	return nil
}

// SetStarred toggles the starred flag on the given ids.
func (s *Store) SetStarred(ctx context.Context, userID string, ids []string, starred bool) error {
	_, err := s.db.ExecContext(ctx, setStarredFilesSQL, userID, idsArray(ids), starred)
	if err != nil {
		return translateError(err, "SetStarred")
	}
	return nil
}

// SetShared toggles the shared flag on the given ids.
func (s *Store) SetShared(ctx context.Context, userID string, ids []string, shared bool) error {
	_, err := s.db.ExecContext(ctx, setSharedFilesSQL, userID, idsArray(ids), shared)
	if err != nil {
		return translateError(err, "SetShared")
	}
	return nil
}

// CountSiblingsByName counts non-deleted siblings already named name
// under parentID, used to drive the " (N)" duplicate-suffix scheme.
func (s *Store) CountSiblingsByName(ctx context.Context, userID string, parentID *string, name string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, countSiblingsByNameSQL, userID, parentID, name).Scan(&count); err != nil {
		return 0, translateError(err, "CountSiblingsByName")
	}
	return count, nil
}

// SearchByName returns up to limit non-deleted files whose name starts
// with query or, for a query longer than two characters, has trigram
// similarity above 0.15 to it, ranked by trigram similarity.
func (s *Store) SearchByName(ctx context.Context, userID, query string, limit int) ([]types.File, error) {
	rows, err := s.db.QueryContext(ctx, searchByNameSQL, userID, query, limit)
	if err != nil {
		return nil, translateError(err, "SearchByName")
	}
	files, err := scanFileRows(rows)
	if err != nil {
		return nil, translateError(err, "SearchByName")
	}
	return files, nil
}

// Stats reports aggregate counts for a user's tree.
func (s *Store) Stats(ctx context.Context, userID string) (*types.Stats, error) {
	var st types.Stats
	err := s.db.QueryRowContext(ctx, statsSQL, userID).Scan(
		&st.TotalFiles, &st.TotalFolders, &st.SharedCount, &st.StarredCount)
	if err != nil {
		return nil, translateError(err, "Stats")
	}
	return &st, nil
}

// idsArray adapts a []string for use with Postgres ANY($n); pgx's stdlib
// driver accepts a plain []string for text[] parameters directly.
func idsArray(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
