package cache

import (
	"context"
	"time"

	"github.com/nimbusvault/corestore/internal/tree"
	"github.com/nimbusvault/corestore/pkg/cachekeys"
)

// l1PromotionTTL bounds how long an L2 hit is mirrored into L1. L1 has
// no notion of per-key TTL classes (§4.C3 describes it as a plain
// "recently read" layer); L2 remains the authority on actual expiry.
const l1PromotionTTL = 60 * time.Second

// Service is the two-level cache of §4.C3: L1 is an in-process LRU
// answering exact keys only, L2 is Redis and owns TTL and
// prefix-pattern delete. It implements tree.CacheInvalidator; its
// Get/Set pair also satisfies internal/listing's narrower Cache
// interface structurally, without either package importing the other.
type Service struct {
	l1 *LRU
	l2 *redisLayer
}

var _ tree.CacheInvalidator = (*Service)(nil)

// New constructs the cache service. l1Entries bounds the in-process
// LRU; redisCfg configures the L2 connection.
func New(l1Entries int, redisCfg RedisConfig) *Service {
	return &Service{l1: NewLRU(l1Entries), l2: newRedisLayer(redisCfg)}
}

// Get checks L1 first, then L2, populating L1 on an L2 hit.
func (s *Service) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := s.l1.Get(key); ok {
		return v, true
	}
	v, ok := s.l2.get(ctx, key)
	if !ok {
		return nil, false
	}
	s.l1.Set(key, v, l1PromotionTTL)
	return v, true
}

// Set writes through both layers; ttlSeconds bounds L2, L1 uses its own
// fixed promotion TTL regardless of what the caller asked L2 to hold.
func (s *Service) Set(ctx context.Context, key string, value []byte, ttlSeconds int) {
	ttl := time.Duration(ttlSeconds) * time.Second
	s.l1.Set(key, value, l1PromotionTTL)
	s.l2.set(ctx, key, value, ttl)
}

// Delete removes key from both layers.
func (s *Service) Delete(ctx context.Context, key string) {
	s.l1.Delete(key)
	s.l2.delete(ctx, key)
}

// DeletePrefix removes every L2 key under prefix. L1 is exact-key only
// (per §4.C3's description of the in-process layer's role), so a
// prefix invalidation here just lets L1 entries expire naturally — they
// carry short TTLs (≤300s) by construction, so the staleness window is
// bounded.
func (s *Service) DeletePrefix(ctx context.Context, prefix string) {
	s.l2.deletePrefix(ctx, prefix)
}

// InvalidateUser drops every key whose contents depend on userID's
// whole tree: directory/starred/shared/trash listings (all share the
// "files:<uid>:" prefix), search results, stats and storage usage, and
// cached custom-drive settings. This is the coarse invalidation every
// mutating tree operation triggers.
func (s *Service) InvalidateUser(ctx context.Context, userID string) {
	s.DeletePrefix(ctx, cachekeys.PrefixFiles(userID))
	s.DeletePrefix(ctx, cachekeys.PrefixSearch(userID))
	s.Delete(ctx, cachekeys.Stats(userID))
	s.Delete(ctx, cachekeys.Storage(userID))
	s.Delete(ctx, cachekeys.CustomDrive(userID))
}

// InvalidateFile drops the cached entry for one file and any cached
// folder size under it, covering the single-file and folder-size keys
// a mutation on that specific id can stale.
func (s *Service) InvalidateFile(ctx context.Context, userID, fileID string) {
	s.Delete(ctx, cachekeys.File(fileID, userID))
	s.DeletePrefix(ctx, cachekeys.PrefixFolder(userID, fileID))
}
