package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-ddd-task-tracker/internal/domain/repository"
)

// DBTX is the subset of *pgxpool.Pool the repositories use. Each call checks
// a connection out of the pool and returns it before the call completes (or,
// for Query, when the rows are closed).
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextForType  = "22P02"
)

// mapError converts driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return repository.ErrDuplicateEmail
		case pgForeignKeyViolation:
			return repository.ErrOwnerMissing
		case pgInvalidTextForType:
			// a malformed uuid can never match a row
			return repository.ErrNotFound
		}
	}
	return err
}
