// Package dbstore is the durable, transactional metadata store (§4.C1):
// row-level CRUD over users, files, share links and audit events, plus the
// two recursive queries (descendants, folder size) the tree engine and
// listing components build on.
package dbstore

import (
	"context"
	"database/sql"
	"embed"
	goerrors "errors"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/nimbusvault/corestore/internal/logging"
	"github.com/nimbusvault/corestore/pkg/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// maxOpenConns bounds the pool at the shared-resource policy's ~20
// connections per process.
const maxOpenConns = 20

// Store is the metadata store. All multi-row mutations it exposes run in
// a single read-committed transaction.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres via the pgx stdlib driver, applies pending
// migrations, and returns a ready Store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnavailable, err, "failed to open database connection").
			WithComponent("dbstore")
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.KindUnavailable, err, "failed to reach database").
			WithComponent("dbstore")
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to load embedded migrations").
			WithComponent("dbstore")
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, db, subFS)
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to create migration provider").
			WithComponent("dbstore")
	}

	results, err := provider.Up(context.Background())
	if err != nil {
		return errors.Wrap(errors.KindInternal, err, "failed to apply migrations").
			WithComponent("dbstore")
	}

	for _, r := range results {
		logging.WithComponent("dbstore").Info().
			Str("migration", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("applied migration")
	}

	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside a read-committed transaction, committing on
// success and rolling back on error or panic. Callers do not retry on
// serialisation failure themselves.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(errors.KindUnavailable, err, "failed to begin transaction").
			WithComponent("dbstore")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.WithComponent("dbstore").Error().Err(rbErr).Msg("transaction rollback failed")
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(errors.KindUnavailable, err, "failed to commit transaction").
			WithComponent("dbstore")
	}

	return nil
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError maps a raw database error to the engine's error taxonomy.
// A nil input returns nil so callers can write `return translateError(err, op)`
// unconditionally.
func translateError(err error, op string) error {
	if err == nil {
		return nil
	}
	if goerrors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(errors.KindNotFound, err, "record not found").
			WithComponent("dbstore").WithOperation(op)
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return errors.Wrap(errors.KindConflict, err, "unique constraint violated").
				WithComponent("dbstore").WithOperation(op)
		case pgForeignKeyViolation:
			return errors.Wrap(errors.KindIntegrityError, err, "foreign key constraint violated").
				WithComponent("dbstore").WithOperation(op)
		}
	}

	return errors.Wrap(errors.KindInternal, err, "database operation failed").
		WithComponent("dbstore").WithOperation(op)
}
