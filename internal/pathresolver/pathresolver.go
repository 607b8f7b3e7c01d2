// Package pathresolver translates a File row's stored path into a concrete
// location on disk, or classifies it without touching the filesystem. It is
// the only package that decides whether a relative path is "safe" to join
// against a base directory.
package pathresolver

import (
	"path/filepath"
	"strings"

	"github.com/nimbusvault/corestore/pkg/errors"
)

// Classification is the three-way distinction a File's path falls into.
type Classification string

const (
	LogicalFolder  Classification = "logical-folder"
	AbsoluteCustom Classification = "absolute-custom"
	StorageKey     Classification = "storage-key"
)

// reservedNames blocks DOS device names that would misbehave if a
// custom-drive sync ever ran against a Windows-origin path.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Classify inspects a File.Path value (nil or not) and reports which of
// the three path variants it is, without touching the filesystem.
func Classify(path *string) Classification {
	if path == nil || *path == "" {
		return LogicalFolder
	}
	if IsAbsolute(*path) {
		return AbsoluteCustom
	}
	return StorageKey
}

// IsAbsolute reports whether p is an absolute filesystem path, accepting
// both POSIX (`/...`) and Windows-style (`C:\...`) forms since custom-drive
// configuration may originate from either.
func IsAbsolute(p string) bool {
	if p == "" {
		return false
	}
	if p[0] == '/' {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

// ResolveForRead returns the absolute filesystem path to a File's bytes.
// path is the File's Path field (nil for logical folders, which have no
// bytes and return InvalidPath).
func ResolveForRead(uploadRoot string, path *string) (string, error) {
	switch Classify(path) {
	case AbsoluteCustom:
		return *path, nil
	case StorageKey:
		return SafeJoin(uploadRoot, *path)
	default:
		return "", errors.New(errors.KindInvalidPath, "logical folder has no bytes on disk").
			WithComponent("pathresolver")
	}
}

// IsEncrypted reports whether the bytes backing path are local-driver
// ciphertext. Only storage-key paths under the local driver are encrypted;
// S3 keys and custom-drive absolute paths are stored as-is.
func IsEncrypted(path *string, storageDriver string) bool {
	return storageDriver == "local" && Classify(path) == StorageKey
}

// SafeJoin joins base with elements, rejecting traversal (`..`), null
// bytes, absolute segments, and reserved device names, and rejecting any
// result that would escape base. It never touches the filesystem.
func SafeJoin(base string, elements ...string) (string, error) {
	cleanBase := filepath.Clean(base)

	for _, e := range elements {
		if err := validateSegment(e); err != nil {
			return "", err
		}
	}

	parts := append([]string{cleanBase}, elements...)
	joined := filepath.Clean(filepath.Join(parts...))

	if joined != cleanBase && !strings.HasPrefix(joined, cleanBase+string(filepath.Separator)) {
		return "", errors.New(errors.KindInvalidPath, "path escapes base directory").
			WithComponent("pathresolver").
			WithDetail("base", base)
	}

	return joined, nil
}

func validateSegment(seg string) error {
	if seg == "" {
		return nil
	}
	if strings.ContainsRune(seg, 0) {
		return errors.New(errors.KindInvalidPath, "path contains a null byte").
			WithComponent("pathresolver")
	}
	if strings.Contains(seg, "..") {
		return errors.New(errors.KindInvalidPath, "path traversal rejected").
			WithComponent("pathresolver").
			WithDetail("segment", seg)
	}
	if filepath.IsAbs(seg) {
		return errors.New(errors.KindInvalidPath, "absolute segment rejected").
			WithComponent("pathresolver").
			WithDetail("segment", seg)
	}

	name := strings.ToUpper(strings.TrimSuffix(filepath.Base(seg), filepath.Ext(seg)))
	if reservedNames[name] {
		return errors.New(errors.KindInvalidPath, "reserved device name rejected").
			WithComponent("pathresolver").
			WithDetail("segment", seg)
	}

	return nil
}
