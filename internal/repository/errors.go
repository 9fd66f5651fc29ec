package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrEmailTaken is returned when a write collides with another user's email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrStillReferenced is returned when a delete would orphan dependent rows.
	ErrStillReferenced = errors.New("record still referenced")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidTextRepr     = "22P02"
)

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == "users_email_key" {
				return ErrEmailTaken
			}
		case pgForeignKeyViolation:
			return ErrStillReferenced
		case pgInvalidTextRepr:
			// malformed ids cannot match any row
			return ErrNotFound
		}
	}
	return err
}
