package dbstore

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	corestoreerrors "github.com/nimbusvault/corestore/pkg/errors"
)

func TestTranslateErrorNil(t *testing.T) {
	assert.Nil(t, translateError(nil, "op"))
}

func TestTranslateErrorNoRows(t *testing.T) {
	err := translateError(sql.ErrNoRows, "GetFile")
	var e *corestoreerrors.Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, corestoreerrors.KindNotFound, e.Kind)
}

func TestTranslateErrorUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgUniqueViolation}
	err := translateError(pgErr, "CreateUser")
	var e *corestoreerrors.Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, corestoreerrors.KindConflict, e.Kind)
}

func TestTranslateErrorForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgForeignKeyViolation}
	err := translateError(pgErr, "CreateFile")
	var e *corestoreerrors.Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, corestoreerrors.KindIntegrityError, e.Kind)
}

func TestTranslateErrorFallsBackToInternal(t *testing.T) {
	err := translateError(fmt.Errorf("connection reset"), "ListDirectory")
	var e *corestoreerrors.Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, corestoreerrors.KindInternal, e.Kind)
}
