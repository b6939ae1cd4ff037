package catalog

import (
	"errors"
	"fmt"
)

// Error is a coded domain error. The router derives err_code from Code().
type Error struct {
	code string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the stable machine-readable error code.
func (e *Error) Code() string { return e.code }

var (
	// ErrConfigNotFound reports that the backing store holds no document yet.
	ErrConfigNotFound = &Error{code: "CONFIG_NOT_FOUND", msg: "catalog: config document not found"}
	// ErrConfigCorrupt reports that the stored document cannot be used.
	ErrConfigCorrupt = &Error{code: "CONFIG_CORRUPT", msg: "catalog: config document is corrupt"}
	// ErrNotLoaded is returned by accessors used before a successful Load.
	ErrNotLoaded = &Error{code: "NOT_LOADED", msg: "catalog: config not loaded"}
	// ErrDuplicateID is returned by strict add when the id already exists.
	ErrDuplicateID = &Error{code: "DUPLICATE_ID", msg: "catalog: button id already exists"}
	// ErrNotFound is returned when a referenced button does not exist.
	ErrNotFound = &Error{code: "NOT_FOUND", msg: "catalog: button not found"}
	// ErrPermissionDenied is returned when the actor lacks the required role.
	ErrPermissionDenied = &Error{code: "PERMISSION_DENIED", msg: "permission denied"}
	// ErrImportEmpty is returned when an import run produced no rows at all.
	ErrImportEmpty = &Error{code: "IMPORT_EMPTY", msg: "import: no rows survived filtering"}
)

// ValidationError describes malformed admin input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Code returns the validation error code.
func (e *ValidationError) Code() string { return "VALIDATION" }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func corrupt(cause error) error {
	return fmt.Errorf("%w: %w", ErrConfigCorrupt, cause)
}
