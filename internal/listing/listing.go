// Package listing implements directory listing, starred/shared/trash
// views, fuzzy search and stats (§4.C7) over the metadata store.
package listing

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/nimbusvault/corestore/internal/dbstore"
	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/pkg/cachekeys"
	"github.com/nimbusvault/corestore/pkg/types"
)

// maxSearchLimit caps the limit a caller may request from Search.
const maxSearchLimit = 500

// TTLs per §4.C3: file listings 60s, search 120s, stats 300s.
const (
	ttlListingSeconds = 60
	ttlSearchSeconds  = 120
	ttlStatsSeconds   = 300
)

// Cache is the subset of the cache component (§4.C3) listing consults
// before querying the metadata store, and populates after.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int)
}

// Service implements types.Lister and types.Searcher.
type Service struct {
	db    *dbstore.Store
	cache Cache
}

var _ types.Lister = (*Service)(nil)
var _ types.Searcher = (*Service)(nil)

// New constructs a listing service. cache may be nil, in which case
// every call reaches the metadata store directly.
func New(db *dbstore.Store, cache Cache) *Service {
	return &Service{db: db, cache: cache}
}

// ListDirectory returns the immediate children of parentID. When
// sorting by size, folder rows have their on-demand size filled in
// before a final in-process stable sort, since size is not a stored
// column for folders.
func (s *Service) ListDirectory(ctx context.Context, userID string, parentID *string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	parentKey := "root"
	if parentID != nil {
		parentKey = *parentID
	}
	key := cachekeys.Files(userID, parentKey, string(sortBy), string(order))

	return s.cachedList(ctx, key, func() ([]types.File, error) {
		files, err := s.db.ListDirectory(ctx, userID, parentID, sortBy, order)
		if err != nil {
			return nil, err
		}
		return s.fillAndSort(ctx, userID, files, sortBy, order)
	})
}

func (s *Service) ListStarred(ctx context.Context, userID string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	key := cachekeys.FilesStarred(userID, string(sortBy), string(order))
	return s.cachedList(ctx, key, func() ([]types.File, error) {
		files, err := s.db.ListStarred(ctx, userID, sortBy, order)
		if err != nil {
			return nil, err
		}
		return s.fillAndSort(ctx, userID, files, sortBy, order)
	})
}

func (s *Service) ListShared(ctx context.Context, userID string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	key := cachekeys.FilesShared(userID, string(sortBy), string(order))
	return s.cachedList(ctx, key, func() ([]types.File, error) {
		files, err := s.db.ListShared(ctx, userID, sortBy, order)
		if err != nil {
			return nil, err
		}
		return s.fillAndSort(ctx, userID, files, sortBy, order)
	})
}

// ListTrash returns deleted rows, sorted like the directory listing:
// when the caller sorts by size, folder sizes are filled in and the rows
// re-sorted in process. A filled-in folder size counts only non-deleted
// files, so a trashed folder whose contents are trashed reports 0.
func (s *Service) ListTrash(ctx context.Context, userID string, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	key := cachekeys.FilesTrash(userID, string(sortBy), string(order))
	return s.cachedList(ctx, key, func() ([]types.File, error) {
		files, err := s.db.ListTrash(ctx, userID, sortBy, order)
		if err != nil {
			return nil, err
		}
		return s.fillAndSort(ctx, userID, files, sortBy, order)
	})
}

// Stats reports aggregate counts for a user's tree, cached 300s.
func (s *Service) Stats(ctx context.Context, userID string) (*types.Stats, error) {
	key := cachekeys.Stats(userID)

	if cached := s.getCachedStats(ctx, key); cached != nil {
		return cached, nil
	}

	stats, err := s.db.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.setCache(ctx, key, stats, ttlStatsSeconds)
	return stats, nil
}

// Search performs the fuzzy-match search named in §4.C7: a short query
// (≤2 runes) uses a prefix match; a longer one combines prefix matching
// with trigram similarity at the database layer, ranked there by
// descending similarity. The query is hashed before it ever reaches a
// cache key, per §4.C3's "never store free-text queries plaintext" rule.
func (s *Service) Search(ctx context.Context, userID, query string, limit int) ([]types.File, error) {
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	key := cachekeys.Search(userID, query, limit)

	return s.cachedListWithTTL(ctx, key, ttlSearchSeconds, func() ([]types.File, error) {
		return s.db.SearchByName(ctx, userID, query, limit)
	})
}

func (s *Service) fillAndSort(ctx context.Context, userID string, files []types.File, sortBy types.SortField, order types.SortOrder) ([]types.File, error) {
	if sortBy != types.SortBySize {
		return files, nil
	}
	if err := s.fillFolderSizes(ctx, userID, files); err != nil {
		return nil, err
	}
	sortBySize(files, order)
	return files, nil
}

func (s *Service) cachedList(ctx context.Context, key string, fetch func() ([]types.File, error)) ([]types.File, error) {
	return s.cachedListWithTTL(ctx, key, ttlListingSeconds, fetch)
}

func (s *Service) cachedListWithTTL(ctx context.Context, key string, ttlSeconds int, fetch func() ([]types.File, error)) ([]types.File, error) {
	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var files []types.File
			if err := json.Unmarshal(raw, &files); err == nil {
				return files, nil
			}
			logging.WithComponent("listing").Warn().Str("key", key).Msg("failed to decode cached listing, refetching")
		}
	}

	files, err := fetch()
	if err != nil {
		return nil, err
	}
	s.setCache(ctx, key, files, ttlSeconds)
	return files, nil
}

func (s *Service) getCachedStats(ctx context.Context, key string) *types.Stats {
	if s.cache == nil {
		return nil
	}
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil
	}
	var stats types.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		logging.WithComponent("listing").Warn().Str("key", key).Msg("failed to decode cached stats, refetching")
		return nil
	}
	return &stats
}

func (s *Service) setCache(ctx context.Context, key string, value interface{}, ttlSeconds int) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		logging.WithComponent("listing").Warn().Str("key", key).Msg("failed to encode value for cache")
		return
	}
	s.cache.Set(ctx, key, raw, ttlSeconds)
}

func (s *Service) fillFolderSizes(ctx context.Context, userID string, files []types.File) error {
	for i := range files {
		if files[i].Type != types.FileTypeFolder {
			continue
		}
		size, err := s.db.FolderSize(ctx, userID, files[i].ID)
		if err != nil {
			return err
		}
		files[i].Size = size
	}
	return nil
}

// sortBySize stably re-sorts files once folder sizes are known; stable
// so ties preserve the database's secondary ordering.
func sortBySize(files []types.File, order types.SortOrder) {
	sort.SliceStable(files, func(i, j int) bool {
		if order == types.OrderDesc {
			return files[i].Size > files[j].Size
		}
		return files[i].Size < files[j].Size
	})
}
