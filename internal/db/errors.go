package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTransactionConflict indicates concurrent writers touched the same records.
	// Callers may retry.
	ErrTransactionConflict = errors.New("transaction conflict")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDimensionMismatch indicates a vector whose length differs from the HNSW index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// wrapQueryError inspects a SurrealDB error and wraps it with the matching
// sentinel. Unknown errors are returned unchanged.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		switch {
		case strings.Contains(msg, "Transaction conflict"):
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		case strings.Contains(msg, "dimension"):
			return fmt.Errorf("%w: %s", ErrDimensionMismatch, msg)
		}
	}

	return err
}
