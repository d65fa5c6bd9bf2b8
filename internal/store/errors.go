package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/starford/folio/internal/apperr"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify maps driver errors onto apperr sentinels, keeping the cause.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("store: %s: %w", op, apperr.ErrNotFound)
	}

	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("store: %s: %w: %v", op, apperr.ErrConflict, err)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("store: %s: %w: %v", op, apperr.ErrNotFound, err)
		}
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch pe.Code {
		case pgUniqueViolation:
			return fmt.Errorf("store: %s: %w: %v", op, apperr.ErrConflict, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("store: %s: %w: %v", op, apperr.ErrNotFound, err)
		}
	}

	return fmt.Errorf("store: %s: %w", op, err)
}
