package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes that signal a transient collision between
// concurrent transactions. Safe to retry once the losing transaction
// has rolled back.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// ErrWriteConflict marks an error as a transient write conflict. Storage
// helpers that detect a conflict by other means (e.g. an upsert racing a
// concurrent insert) wrap their error with this sentinel so the retry
// layer never has to inspect message text.
var ErrWriteConflict = errors.New("write conflict")

// IsWriteConflict reports whether err signals a transient storage write
// conflict that is safe to retry.
func IsWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWriteConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}
