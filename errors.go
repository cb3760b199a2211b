package ctxcache

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Every error returned by this package matches exactly
// one of these with errors.Is; the offending value, when there is one, is
// available through errors.As on *Error.
var (
	// ErrOutputExists is returned when a build targets a directory that already exists.
	ErrOutputExists = errors.New("output already exists")

	// ErrDuplicateID is returned when two documents in one batch share a DocumentID.
	ErrDuplicateID = errors.New("duplicate document id")

	// ErrFilenameCollision is returned when two distinct ids derive the same content filename.
	ErrFilenameCollision = errors.New("filename collision")

	// ErrInvalidVersion is returned when the configured cache version tag is malformed.
	ErrInvalidVersion = errors.New("invalid version format")

	// ErrSerialization is returned when the manifest encoder fails.
	ErrSerialization = errors.New("manifest serialization failed")

	// ErrIO is returned for filesystem failures.
	ErrIO = errors.New("i/o failure")

	// ErrManifestParse is returned when manifest bytes are malformed or miss required fields.
	ErrManifestParse = errors.New("manifest parse failure")

	// ErrCacheIntegrity is returned when a cache on disk disagrees with its manifest.
	ErrCacheIntegrity = errors.New("cache integrity failure")

	// ErrInvalidBudget is returned for budgets outside the accepted range.
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrInvalidPath is returned when a path cannot be made relative to its ingestion root.
	ErrInvalidPath = errors.New("invalid document path")

	// ErrIngest is returned when raw content is not well-formed text.
	ErrIngest = errors.New("ingestion failure")
)

// Error carries an error kind together with the value that triggered it
// (an id, a filename, a version tag, a path) and the underlying cause.
type Error struct {
	Kind    error  // One of the sentinel errors above
	Subject string // Offending value, may be empty
	Err     error  // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Kind.Error())
	if e.Subject != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Subject)
	}
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, subject string, cause error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: cause}
}

func ioError(op string, cause error) *Error {
	return newError(ErrIO, op, cause)
}

// ValidationError represents one or more structural problems found in a
// build batch when the builder runs with WithAccumulateErrors.
type ValidationError struct {
	Errors []error
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", ve.Errors[0])
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "validation failed with %d errors:\n", len(ve.Errors))
	for i, err := range ve.Errors {
		fmt.Fprintf(&buf, "  %d. %v\n", i+1, err)
	}
	return buf.String()
}

// Unwrap returns the underlying errors for use with errors.Is and errors.As.
func (ve *ValidationError) Unwrap() []error {
	return ve.Errors
}

// newValidationError creates a ValidationError from a slice of errors.
// Returns nil if the slice is empty.
func newValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return &ValidationError{Errors: errs}
}
