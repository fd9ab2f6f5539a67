package schema

import (
	"errors"
	"fmt"
)

// InvariantCode categorizes schema invariant violations.
type InvariantCode string

const (
	// ErrCodeDuplicatePrimary indicates a second primary index on one layout.
	ErrCodeDuplicatePrimary InvariantCode = "DUPLICATE_PRIMARY"

	// ErrCodeEnumSeparator indicates an enum option containing the separator.
	ErrCodeEnumSeparator InvariantCode = "ENUM_SEPARATOR"

	// ErrCodeMissingPrimary indicates a layout without the required primary key.
	ErrCodeMissingPrimary InvariantCode = "MISSING_PRIMARY"
)

// InvariantError reports a schema invariant violation. These are
// programmer errors in migration authorship and are never recoverable
// at runtime.
type InvariantError struct {
	// Code identifies the violated invariant.
	Code InvariantCode

	// Subject names the layout, field or index involved.
	Subject string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Subject, e.Message)
}

// IsInvariant returns true if err is an InvariantError with the given
// code. Uses errors.As to handle wrapped errors.
func IsInvariant(err error, code InvariantCode) bool {
	var ie *InvariantError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}

// LookupError reports a reference to a field, index or layout that
// does not exist. Lookups never return a default value that could mask
// a typo.
type LookupError struct {
	// Kind is "field", "index" or "table".
	Kind string

	// Name is the missing identifier.
	Name string

	// Scope names the layout or schema searched.
	Scope string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("%s %q not found in %s", e.Kind, e.Name, e.Scope)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// IsNotFound returns true if err is a LookupError.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}
