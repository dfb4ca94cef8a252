package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsWriteConflict_PgSerializationFailure(t *testing.T) {
	err := &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}
	if !IsWriteConflict(err) {
		t.Error("serialization_failure must classify as write conflict")
	}
}

func TestIsWriteConflict_PgDeadlock(t *testing.T) {
	err := &pgconn.PgError{Code: "40P01", Message: "deadlock detected"}
	if !IsWriteConflict(err) {
		t.Error("deadlock_detected must classify as write conflict")
	}
}

func TestIsWriteConflict_WrappedPgError(t *testing.T) {
	inner := &pgconn.PgError{Code: "40001"}
	err := fmt.Errorf("detect conflicts: %w", inner)
	if !IsWriteConflict(err) {
		t.Error("classification must unwrap")
	}
}

func TestIsWriteConflict_Sentinel(t *testing.T) {
	err := fmt.Errorf("upsert raced: %w", ErrWriteConflict)
	if !IsWriteConflict(err) {
		t.Error("wrapped sentinel must classify as write conflict")
	}
}

func TestIsWriteConflict_OtherErrors(t *testing.T) {
	cases := []error{
		nil,
		errors.New("connection refused"),
		&pgconn.PgError{Code: "23505", Message: "duplicate key value"},
	}
	for _, err := range cases {
		if IsWriteConflict(err) {
			t.Errorf("%v must not classify as write conflict", err)
		}
	}
}
