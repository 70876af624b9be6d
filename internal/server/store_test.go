package server

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgconn"
)

func TestIsRetryableTxError(t *testing.T) {
	deadlock := &pgconn.PgError{Code: "40P01"}
	serialization := &pgconn.PgError{Code: "40001"}
	unique := &pgconn.PgError{Code: "23505"}

	if !isRetryableTxError(deadlock) {
		t.Fatal("deadlock should retry")
	}
	if !isRetryableTxError(fmt.Errorf("tx failed: %w", serialization)) {
		t.Fatal("wrapped serialization failure should retry")
	}
	if isRetryableTxError(unique) {
		t.Fatal("unique violation is not retryable")
	}
	if isRetryableTxError(errors.New("plain error")) {
		t.Fatal("plain errors are not retryable")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("23505 is a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "40P01"}) {
		t.Fatal("deadlock is not a unique violation")
	}
	if isUniqueViolation(errors.New("plain error")) {
		t.Fatal("plain errors are not unique violations")
	}
}
