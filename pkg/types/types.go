// Package types defines the entities of §3 and the capability interfaces
// an out-of-scope HTTP layer uses to drive the storage engine core.
package types

import "time"

// FileType distinguishes a file row from a folder row. Behaviours branch
// explicitly on this tag rather than through subtype polymorphism.
type FileType string

const (
	FileTypeFile   FileType = "file"
	FileTypeFolder FileType = "folder"
)

// User is a tenant of the engine. CustomDrivePath is nil unless
// CustomDriveEnabled; CustomDriveIgnorePatterns is an ordered sequence of
// glob strings matched against slash-separated paths relative to that
// directory and against each entry's base name.
type User struct {
	ID                        string
	Email                     string
	PasswordHash              string
	CreatedAt                 time.Time
	StorageLimitBytes         int64
	CustomDriveEnabled        bool
	CustomDrivePath           *string
	CustomDriveIgnorePatterns []string
}

// File is a row in the tree: a file or a folder owned by one user. Path has
// three variants distinguishable by inspection: nil (logical folder, no
// on-disk analogue), absolute (custom-drive entry), or relative (a local
// storage key or S3 key).
type File struct {
	ID        string
	UserID    string
	Name      string
	Type      FileType
	ParentID  *string
	Size      int64
	MimeType  *string
	Path      *string
	Starred   bool
	Shared    bool
	Modified  time.Time
	DeletedAt *time.Time
}

// InTrash reports whether f has been soft-deleted.
func (f *File) InTrash() bool {
	return f.DeletedAt != nil
}

// IsCustomDrive reports whether f's bytes, if any, live at an absolute
// filesystem path rather than under a storage driver.
func (f *File) IsCustomDrive() bool {
	return f.Path != nil && isAbsolutePath(*f.Path)
}

func isAbsolutePath(p string) bool {
	if p == "" {
		return false
	}
	if p[0] == '/' {
		return true
	}
	// Windows-style drive letter, in case custom-drive input originated there.
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

// ShareLink is a public token bound to a set of Files via ShareLinkFile
// junction rows.
type ShareLink struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt *time.Time
}

// Expired reports whether the link's expiry has passed as of now.
func (s *ShareLink) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// ShareLinkFile is the composite-key junction row between a ShareLink and a
// File it exposes.
type ShareLinkFile struct {
	ShareLinkID string
	FileID      string
}

// AuditStatus is the terminal outcome of an audited action.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
	AuditStatusError   AuditStatus = "error"
)

// AuditEvent is a durable record of one audited action, produced
// asynchronously by the event producer and persisted by its job handler.
type AuditEvent struct {
	ID               string
	RequestID        string
	UserID           *string
	Action           string
	ResourceType     string
	ResourceID       string
	Status           AuditStatus
	IPAddress        string
	UserAgent        string
	Metadata         map[string]interface{}
	ErrorMessage     *string
	ProcessingTimeMs int64
	CreatedAt        time.Time
}

// ChangeKind identifies what happened to a File, for SSE fan-out.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRestored ChangeKind = "restored"
)

// FileChangeEvent is broadcast in-process to SSE subscribers after a
// committed mutation. Delivery is best-effort; it is never persisted.
type FileChangeEvent struct {
	UserID   string
	Kind     ChangeKind
	FileID   string
	ParentID *string
}

// Stats is the aggregate summary returned by Lister.Stats.
type Stats struct {
	TotalFiles   int
	TotalFolders int
	SharedCount  int
	StarredCount int
}

// SortField is the whitelisted set of columns a listing may be ordered by.
type SortField string

const (
	SortByName      SortField = "name"
	SortBySize      SortField = "size"
	SortByModified  SortField = "modified"
	SortByDeletedAt SortField = "deletedAt"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)
