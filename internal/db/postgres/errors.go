package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sundayezeilo/shortlink/internal/db"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"

	shortCodeUniqueConstraint = "links_short_code_unique"
	shortCodeFKConstraint     = "access_events_short_code_fkey"
)

// mapError converts pgx errors into the db sentinels. Anything it does not
// recognise is returned untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return db.ErrNoRows
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == shortCodeUniqueConstraint:
		return fmt.Errorf("%w: %s", db.ErrUniqueViolation, pgErr.ConstraintName)
	case pgErr.Code == codeForeignKeyViolation && pgErr.ConstraintName == shortCodeFKConstraint:
		return fmt.Errorf("%w: %s", db.ErrForeignKeyViolation, pgErr.ConstraintName)
	default:
		return err
	}
}
