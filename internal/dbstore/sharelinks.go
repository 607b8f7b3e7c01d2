package dbstore

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/nimbusvault/corestore/internal/idgen"
	"github.com/nimbusvault/corestore/pkg/types"
)

const (
	insertShareLinkSQL = `INSERT INTO share_links (id, token, user_id, expires_at) VALUES ($1, $2, $3, $4)`

	selectShareLinkByTokenSQL = `SELECT id, token, user_id, expires_at FROM share_links WHERE token = $1`

	deleteShareLinkSQL = `DELETE FROM share_links WHERE id = $1 AND user_id = $2`

	findShareLinkForFileSQL = `
		SELECT sl.id, sl.token, sl.user_id, sl.expires_at
		FROM share_links sl
		JOIN share_link_files slf ON slf.share_link_id = sl.id
		WHERE sl.user_id = $1
		GROUP BY sl.id
		HAVING array_agg(slf.file_id ORDER BY slf.file_id) = $2::char(16)[]`

	insertShareLinkFileSQL = `INSERT INTO share_link_files (share_link_id, file_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	deleteShareLinkFilesSQL = `DELETE FROM share_link_files WHERE share_link_id = $1`

	countShareLinkFilesSQL = `SELECT COUNT(*) FROM share_link_files WHERE share_link_id = $1`

	filesForShareLinkSQL = `
		SELECT ` + fileColumns + ` FROM files f
		JOIN share_link_files slf ON slf.file_id = f.id
		WHERE slf.share_link_id = $1 AND f.deleted_at IS NULL`
)

func scanShareLink(row *sql.Row) (*types.ShareLink, error) {
	var sl types.ShareLink
	if err := row.Scan(&sl.ID, &sl.Token, &sl.UserID, &sl.ExpiresAt); err != nil {
		return nil, err
	}
	return &sl, nil
}

// CreateShareLink inserts a new share-link row with a caller-generated
// token (see internal/share for token generation). expiresAt is nil for
// a link that never expires.
func (s *Store) CreateShareLink(ctx context.Context, userID, token string, expiresAt *time.Time) (*types.ShareLink, error) {
	id, err := idgen.New()
	if err != nil {
		return nil, err
	}
	sl := &types.ShareLink{ID: id, Token: token, UserID: userID, ExpiresAt: expiresAt}

	_, err = s.db.ExecContext(ctx, insertShareLinkSQL, sl.ID, sl.Token, sl.UserID, sl.ExpiresAt)
	if err != nil {
		return nil, translateError(err, "CreateShareLink")
	}
	return sl, nil
}

// GetShareLinkByToken returns the share link, or nil if no such token exists.
func (s *Store) GetShareLinkByToken(ctx context.Context, token string) (*types.ShareLink, error) {
	sl, err := scanShareLink(s.db.QueryRowContext(ctx, selectShareLinkByTokenSQL, token))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateError(err, "GetShareLinkByToken")
	}
	return sl, nil
}

// DeleteShareLink removes a share link and, via cascade, its file
// associations.
func (s *Store) DeleteShareLink(ctx context.Context, userID, id string) error {
	if _, err := s.db.ExecContext(ctx, deleteShareLinkSQL, id, userID); err != nil {
		return translateError(err, "DeleteShareLink")
	}
	return nil
}

// FindShareLinkForFile returns an existing share link whose file set is
// exactly fileIDs (used to reuse a link rather than mint a duplicate),
// or nil if none matches.
func (s *Store) FindShareLinkForFile(ctx context.Context, userID string, fileIDs []string) (*types.ShareLink, error) {
	sorted := append([]string(nil), fileIDs...)
	sort.Strings(sorted)

	sl, err := scanShareLink(s.db.QueryRowContext(ctx, findShareLinkForFileSQL, userID, sorted))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateError(err, "FindShareLinkForFile")
	}
	return sl, nil
}

// AddShareLinkFiles associates fileIDs with a share link.
func (s *Store) AddShareLinkFiles(ctx context.Context, shareLinkID string, fileIDs []string) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, fileID := range fileIDs {
			if _, err := tx.ExecContext(ctx, insertShareLinkFileSQL, shareLinkID, fileID); err != nil {
				return translateError(err, "AddShareLinkFiles")
			}
		}
		return nil
	})
}

// RemoveShareLinkFiles clears every file association for a share link,
// leaving the link row itself in place.
func (s *Store) RemoveShareLinkFiles(ctx context.Context, shareLinkID string) error {
	if _, err := s.db.ExecContext(ctx, deleteShareLinkFilesSQL, shareLinkID); err != nil {
		return translateError(err, "RemoveShareLinkFiles")
	}
	return nil
}

// CountShareLinkFiles reports how many files remain associated with a
// share link, so callers can decide whether to delete an emptied link.
func (s *Store) CountShareLinkFiles(ctx context.Context, shareLinkID string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, countShareLinkFilesSQL, shareLinkID).Scan(&count); err != nil {
		return 0, translateError(err, "CountShareLinkFiles")
	}
	return count, nil
}

// FilesForShareLink resolves a share link's non-deleted files.
func (s *Store) FilesForShareLink(ctx context.Context, shareLinkID string) ([]types.File, error) {
	rows, err := s.db.QueryContext(ctx, filesForShareLinkSQL, shareLinkID)
	if err != nil {
		return nil, translateError(err, "FilesForShareLink")
	}
	files, err := scanFileRows(rows)
	if err != nil {
		return nil, translateError(err, "FilesForShareLink")
	}
	return files, nil
}
