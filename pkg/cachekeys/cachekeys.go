// Package cachekeys is the single source of truth for the cache key
// scheme of §4.C3, shared by internal/cache (which owns invalidation)
// and internal/listing (which reads and populates listing/search/stats
// entries) without making either package depend on the other.
package cachekeys

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashQuery digests a free-text search query for use in a cache key.
// Queries must never appear in a key plaintext.
func HashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:8])
}

func Files(userID, parent, sortBy, order string) string {
	return fmt.Sprintf("files:%s:%s:%s:%s", userID, parent, sortBy, order)
}

func FilesStarred(userID, sortBy, order string) string {
	return fmt.Sprintf("files:%s:starred:%s:%s", userID, sortBy, order)
}

func FilesShared(userID, sortBy, order string) string {
	return fmt.Sprintf("files:%s:shared:%s:%s", userID, sortBy, order)
}

func FilesTrash(userID, sortBy, order string) string {
	return fmt.Sprintf("files:%s:trash:%s:%s", userID, sortBy, order)
}

func File(fileID, userID string) string {
	return fmt.Sprintf("file:%s:%s", fileID, userID)
}

func FolderSize(userID, fileID string) string {
	return fmt.Sprintf("folder:%s:%s:size", userID, fileID)
}

func Search(userID, query string, limit int) string {
	return fmt.Sprintf("search:%s:%s:%d", userID, HashQuery(query), limit)
}

func Stats(userID string) string {
	return fmt.Sprintf("stats:%s", userID)
}

func Storage(userID string) string {
	return fmt.Sprintf("storage:%s", userID)
}

func CustomDrive(userID string) string {
	return fmt.Sprintf("user:%s:customdrive", userID)
}

// PrefixFiles covers every directory/starred/shared/trash listing key
// for userID, since they all share the "files:<uid>:" prefix.
func PrefixFiles(userID string) string {
	return fmt.Sprintf("files:%s:", userID)
}

func PrefixSearch(userID string) string {
	return fmt.Sprintf("search:%s:", userID)
}

func PrefixFolder(userID, fileID string) string {
	return fmt.Sprintf("folder:%s:%s:", userID, fileID)
}
