// Package types defines the storage engine's entities (User, File,
// ShareLink, AuditEvent) and the capability interfaces — TreeEngine,
// Lister, Searcher, ShareMinter, Downloader — through which an
// out-of-scope HTTP layer drives the engine.
//
// The entities hold only IDs to reference one another (an arena-like
// pattern: everything lives in the metadata store, nothing here owns a
// pointer graph), so callers may freely pass File/ShareLink values by
// value without aliasing concerns.
package types
