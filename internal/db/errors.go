package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a requested row does not exist (or is not
	// visible to the caller).
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert or update hits a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrCheckViolation is returned when a CHECK constraint rejects a row.
	ErrCheckViolation = errors.New("check constraint violation")
)

// ConstraintError carries the name of the constraint behind a mapped error.
type ConstraintError struct {
	Kind       error
	Constraint string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v (constraint: %s)", e.Kind, e.Constraint)
}

func (e *ConstraintError) Unwrap() error {
	return e.Kind
}

// WrapError adds the operation name to err and maps driver errors onto the
// package sentinels so callers never inspect pgx types directly.
func WrapError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: %w", operation, &ConstraintError{Kind: ErrDuplicateKey, Constraint: pgErr.ConstraintName})
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", operation, &ConstraintError{Kind: ErrForeignKeyViolation, Constraint: pgErr.ConstraintName})
		case "23514": // check_violation
			return fmt.Errorf("%s: %w", operation, &ConstraintError{Kind: ErrCheckViolation, Constraint: pgErr.ConstraintName})
		default:
			return fmt.Errorf("%s: database error [%s]: %w", operation, pgErr.Code, err)
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}

// IsNotFound returns true if the error is an ErrNotFound error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateKey returns true if the error is an ErrDuplicateKey error.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}

// Constraint returns the constraint name attached to err, if any.
func Constraint(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}
