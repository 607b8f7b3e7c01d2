package types

import (
	"context"
	"io"
)

// This var block is a compile-time check that a minimal
// implementation satisfies every capability interface.
var (
	_ TreeEngine  = (*stubTreeEngine)(nil)
	_ Lister      = (*stubLister)(nil)
	_ Searcher    = (*stubSearcher)(nil)
	_ ShareMinter = (*stubShareMinter)(nil)
	_ Downloader  = (*stubDownloader)(nil)
)

type stubTreeEngine struct{}

func (s *stubTreeEngine) CreateFolder(ctx context.Context, userID, name string, parentID *string) (*File, error) {
	return nil, nil
}

func (s *stubTreeEngine) UploadFile(ctx context.Context, userID, name string, size int64, mimeType string, parentID *string, src io.Reader) (*File, error) {
	return nil, nil
}

func (s *stubTreeEngine) Rename(ctx context.Context, userID, fileID, newName string) (*File, error) {
	return nil, nil
}

func (s *stubTreeEngine) Move(ctx context.Context, userID string, ids []string, targetParentID *string) error {
	return nil
}

func (s *stubTreeEngine) Copy(ctx context.Context, userID string, ids []string, targetParentID *string) error {
	return nil
}

func (s *stubTreeEngine) SoftDelete(ctx context.Context, userID string, ids []string) error {
	return nil
}

func (s *stubTreeEngine) Restore(ctx context.Context, userID string, ids []string) error {
	return nil
}

func (s *stubTreeEngine) PurgeDelete(ctx context.Context, userID string, ids []string) error {
	return nil
}

func (s *stubTreeEngine) SetStarred(ctx context.Context, userID string, ids []string, starred bool) error {
	return nil
}

func (s *stubTreeEngine) SetShared(ctx context.Context, userID string, ids []string, shared bool) error {
	return nil
}

type stubLister struct{}

func (s *stubLister) ListDirectory(ctx context.Context, userID string, parentID *string, sortBy SortField, order SortOrder) ([]File, error) {
	return nil, nil
}

func (s *stubLister) ListStarred(ctx context.Context, userID string, sortBy SortField, order SortOrder) ([]File, error) {
	return nil, nil
}

func (s *stubLister) ListShared(ctx context.Context, userID string, sortBy SortField, order SortOrder) ([]File, error) {
	return nil, nil
}

func (s *stubLister) ListTrash(ctx context.Context, userID string, sortBy SortField, order SortOrder) ([]File, error) {
	return nil, nil
}

func (s *stubLister) Stats(ctx context.Context, userID string) (*Stats, error) {
	return nil, nil
}

type stubSearcher struct{}

func (s *stubSearcher) Search(ctx context.Context, userID, query string, limit int) ([]File, error) {
	return nil, nil
}

type stubShareMinter struct{}

func (s *stubShareMinter) MintOrReuse(ctx context.Context, userID string, fileIDs []string) (*ShareLink, error) {
	return nil, nil
}

func (s *stubShareMinter) Revoke(ctx context.Context, userID string, fileIDs []string) error {
	return nil
}

func (s *stubShareMinter) Resolve(ctx context.Context, token string) ([]File, error) {
	return nil, nil
}

type stubDownloader struct{}

func (s *stubDownloader) Download(ctx context.Context, userID, fileID string) (io.ReadCloser, *File, error) {
	return nil, nil, nil
}

func (s *stubDownloader) DownloadFolderArchive(ctx context.Context, userID, folderID string) (io.ReadCloser, error) {
	return nil, nil
}
