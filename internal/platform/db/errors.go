package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	CodeUniqueViolation      = "23505"
	CodeForeignKeyViolation  = "23503"
	CodeCheckViolation       = "23514"
	CodeSerializationFailure = "40001"
	CodeDeadlockDetected     = "40P01"
)

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// IsUniqueViolation reports a unique constraint failure, optionally for a named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	code, name := pgCode(err)
	return code == CodeUniqueViolation && (constraint == "" || constraint == name)
}

// IsForeignKeyViolation reports a foreign key failure.
func IsForeignKeyViolation(err error) bool {
	code, _ := pgCode(err)
	return code == CodeForeignKeyViolation
}

// IsCheckViolation reports a CHECK constraint failure, optionally for a named constraint.
func IsCheckViolation(err error, constraint string) bool {
	code, name := pgCode(err)
	return code == CodeCheckViolation && (constraint == "" || constraint == name)
}

// IsRetryable reports whether the transaction can be re-run from scratch.
func IsRetryable(err error) bool {
	code, _ := pgCode(err)
	return code == CodeSerializationFailure || code == CodeDeadlockDetected
}
