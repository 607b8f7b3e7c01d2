package dbstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/nimbusvault/corestore/internal/idgen"
	"github.com/nimbusvault/corestore/pkg/errors"
	"github.com/nimbusvault/corestore/pkg/types"
)

const (
	insertUserSQL = `
		INSERT INTO users (id, email, password_hash, created_at, storage_limit_bytes,
			custom_drive_enabled, custom_drive_path, custom_drive_ignore_patterns)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectUserByIDSQL = `
		SELECT id, email, password_hash, created_at, storage_limit_bytes,
			custom_drive_enabled, custom_drive_path, custom_drive_ignore_patterns
		FROM users WHERE id = $1`

	selectUserByEmailSQL = `
		SELECT id, email, password_hash, created_at, storage_limit_bytes,
			custom_drive_enabled, custom_drive_path, custom_drive_ignore_patterns
		FROM users WHERE email = $1`

	selectPrimaryAdminIDSQL = `SELECT id FROM users ORDER BY created_at ASC LIMIT 1`

	updateUserCustomDriveSQL = `
		UPDATE users SET custom_drive_enabled = $2, custom_drive_path = $3,
			custom_drive_ignore_patterns = $4
		WHERE id = $1`

	deleteUserSQL = `DELETE FROM users WHERE id = $1`

	selectCustomDriveEnabledUsersSQL = `
		SELECT id, email, password_hash, created_at, storage_limit_bytes,
			custom_drive_enabled, custom_drive_path, custom_drive_ignore_patterns
		FROM users WHERE custom_drive_enabled = true`
)

// encodePatterns/decodePatterns marshal the ordered ignore-pattern list to
// the jsonb column; a jsonb array preserves order, unlike a postgres text[]
// compared with ANY().
func encodePatterns(patterns []string) ([]byte, error) {
	if patterns == nil {
		patterns = []string{}
	}
	return json.Marshal(patterns)
}

func decodePatterns(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var patterns []string
	if err := json.Unmarshal(raw, &patterns); err != nil {
		return nil, err
	}
	return patterns, nil
}

// CreateUser inserts a new user row, generating its id.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string, storageLimitBytes int64) (*types.User, error) {
	id, err := idgen.New()
	if err != nil {
		return nil, err
	}
	u := &types.User{
		ID:                id,
		Email:             email,
		PasswordHash:      passwordHash,
		CreatedAt:         time.Now().UTC(),
		StorageLimitBytes: storageLimitBytes,
	}

	encoded, err := encodePatterns(u.CustomDriveIgnorePatterns)
	if err != nil {
		return nil, errors.Wrap(errors.KindInternal, err, "failed to encode ignore patterns").
			WithComponent("dbstore")
	}

	_, err = s.db.ExecContext(ctx, insertUserSQL, u.ID, u.Email, u.PasswordHash, u.CreatedAt,
		u.StorageLimitBytes, u.CustomDriveEnabled, u.CustomDrivePath, encoded)
	if err != nil {
		return nil, translateError(err, "CreateUser")
	}
	return u, nil
}

func scanUser(row *sql.Row) (*types.User, error) {
	return scanUserRow(row.Scan)
}

func scanUserRow(scan func(dest ...interface{}) error) (*types.User, error) {
	var u types.User
	var rawPatterns []byte
	if err := scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.StorageLimitBytes,
		&u.CustomDriveEnabled, &u.CustomDrivePath, &rawPatterns); err != nil {
		return nil, err
	}
	patterns, err := decodePatterns(rawPatterns)
	if err != nil {
		return nil, err
	}
	u.CustomDriveIgnorePatterns = patterns
	return &u, nil
}

// ListCustomDriveEnabledUsers returns every user with custom-drive sync
// turned on, for the engine to arm a watcher per user at startup.
func (s *Store) ListCustomDriveEnabledUsers(ctx context.Context) ([]types.User, error) {
	rows, err := s.db.QueryContext(ctx, selectCustomDriveEnabledUsersSQL)
	if err != nil {
		return nil, translateError(err, "ListCustomDriveEnabledUsers")
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		u, err := scanUserRow(rows.Scan)
		if err != nil {
			return nil, translateError(err, "ListCustomDriveEnabledUsers")
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "ListCustomDriveEnabledUsers")
	}
	return users, nil
}

// GetUserByID returns the user, or nil if no such user exists.
func (s *Store) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUserByIDSQL, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateError(err, "GetUserByID")
	}
	return u, nil
}

// GetUserByEmail returns the user, or nil if no such user exists.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, selectUserByEmailSQL, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, translateError(err, "GetUserByEmail")
	}
	return u, nil
}

// IsPrimaryAdmin reports whether id is the oldest user by created_at, the
// engine's immutable primary-administrator binding.
func (s *Store) IsPrimaryAdmin(ctx context.Context, id string) (bool, error) {
	var primaryID string
	if err := s.db.QueryRowContext(ctx, selectPrimaryAdminIDSQL).Scan(&primaryID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, translateError(err, "IsPrimaryAdmin")
	}
	return primaryID == id, nil
}

// DeleteUser removes a user row. Deleting the primary administrator is
// rejected with KindIntegrityError.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	isPrimary, err := s.IsPrimaryAdmin(ctx, id)
	if err != nil {
		return err
	}
	if isPrimary {
		return errors.New(errors.KindIntegrityError, "cannot delete the primary administrator").
			WithComponent("dbstore").WithOperation("DeleteUser")
	}

	if _, err := s.db.ExecContext(ctx, deleteUserSQL, id); err != nil {
		return translateError(err, "DeleteUser")
	}
	return nil
}

// UpdateUserCustomDrive persists a user's custom-drive configuration.
func (s *Store) UpdateUserCustomDrive(ctx context.Context, id string, enabled bool, path *string, ignorePatterns []string) error {
	encoded, err := encodePatterns(ignorePatterns)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to encode ignore patterns").
			WithComponent("dbstore")
	}
	_, err = s.db.ExecContext(ctx, updateUserCustomDriveSQL, id, enabled, path, encoded)
	if err != nil {
		return translateError(err, "UpdateUserCustomDrive")
	}
	return nil
}
