package types

import (
	"context"
	"io"
)

// TreeEngine is the set of mutating operations over the file tree. Every
// operation invalidates the user's cached entries after a successful
// write. internal/tree's implementation emits no audit records.
type TreeEngine interface {
	CreateFolder(ctx context.Context, userID, name string, parentID *string) (*File, error)
	UploadFile(ctx context.Context, userID, name string, size int64, mimeType string, parentID *string, src io.Reader) (*File, error)
	Rename(ctx context.Context, userID, fileID, newName string) (*File, error)
	Move(ctx context.Context, userID string, ids []string, targetParentID *string) error
	Copy(ctx context.Context, userID string, ids []string, targetParentID *string) error
	SoftDelete(ctx context.Context, userID string, ids []string) error
	Restore(ctx context.Context, userID string, ids []string) error
	PurgeDelete(ctx context.Context, userID string, ids []string) error
	SetStarred(ctx context.Context, userID string, ids []string, starred bool) error
	SetShared(ctx context.Context, userID string, ids []string, shared bool) error
}

// Lister serves directory, starred, shared and trash listings plus
// aggregate stats.
type Lister interface {
	ListDirectory(ctx context.Context, userID string, parentID *string, sortBy SortField, order SortOrder) ([]File, error)
	ListStarred(ctx context.Context, userID string, sortBy SortField, order SortOrder) ([]File, error)
	ListShared(ctx context.Context, userID string, sortBy SortField, order SortOrder) ([]File, error)
	ListTrash(ctx context.Context, userID string, sortBy SortField, order SortOrder) ([]File, error)
	Stats(ctx context.Context, userID string) (*Stats, error)
}

// Searcher serves fuzzy name search.
type Searcher interface {
	Search(ctx context.Context, userID, query string, limit int) ([]File, error)
}

// ShareMinter mints, revokes and resolves public share tokens.
type ShareMinter interface {
	MintOrReuse(ctx context.Context, userID string, fileIDs []string) (*ShareLink, error)
	Revoke(ctx context.Context, userID string, fileIDs []string) error
	Resolve(ctx context.Context, token string) ([]File, error)
}

// Downloader streams file bytes, or a zip archive of a folder's contents,
// to a caller.
type Downloader interface {
	Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *File, error)
	DownloadFolderArchive(ctx context.Context, userID, folderID string) (io.ReadCloser, error)
}
