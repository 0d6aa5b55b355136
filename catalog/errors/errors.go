// Package errors provides standardized error types for catalog operations.
package errors

import (
	"fmt"
)

// Error constants for catalog operations
var (
	// ErrUnknownRelation is returned when a planned query references a
	// table the catalog does not know. This indicates a bound-query /
	// catalog mismatch upstream and is not locally recoverable.
	ErrUnknownRelation = &CatalogError{code: "unknown_relation", msg: "unknown relation"}

	// ErrColumnNotFound is returned when a requested column cannot be found
	ErrColumnNotFound = &CatalogError{code: "column_not_found", msg: "column not found"}

	// ErrInvalidColumnType is returned when a column has an invalid type tag
	ErrInvalidColumnType = &CatalogError{code: "invalid_column_type", msg: "invalid column type"}

	// ErrSnapshotNotFound is returned when a named snapshot is missing
	// from the snapshot store
	ErrSnapshotNotFound = &CatalogError{code: "snapshot_not_found", msg: "snapshot not found"}
)

// CatalogError represents a catalog-specific error
type CatalogError struct {
	code string
	msg  string
	err  error // wrapped error
}

// Error implements the error interface
func (e *CatalogError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Code returns the machine-readable error code
func (e *CatalogError) Code() string {
	return e.code
}

// Unwrap returns the wrapped error
func (e *CatalogError) Unwrap() error {
	return e.err
}

// Is checks if the error matches the target by code
func (e *CatalogError) Is(target error) bool {
	t, ok := target.(*CatalogError)
	if !ok {
		return false
	}
	return e.code == t.code
}

// WithDetail returns a copy of the error carrying extra context in its
// message while still matching the sentinel via Is.
func (e *CatalogError) WithDetail(format string, args ...interface{}) *CatalogError {
	return &CatalogError{
		code: e.code,
		msg:  fmt.Sprintf("%s: %s", e.msg, fmt.Sprintf(format, args...)),
		err:  e.err,
	}
}
