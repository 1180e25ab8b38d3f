package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaViolation signals a query document that fails the grammar.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrUnsupportedVersion signals an unregistered query schema version.
	ErrUnsupportedVersion = errors.New("unsupported query version")
	// ErrQueryTooComplex signals a query exceeding the nesting guard.
	ErrQueryTooComplex = errors.New("query too complex")
	// ErrUnknownArea signals a named area missing from the reference datasets.
	ErrUnknownArea = errors.New("unknown named area")
	// ErrBackendUnavailable signals a per-resource backend failure.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrTimeout signals a per-resource deadline expiry.
	ErrTimeout = errors.New("timeout")
	// ErrSlugNotFound signals an unresolvable slug.
	ErrSlugNotFound = errors.New("slug not found")
	// ErrNoResources signals that no searchable resources remain after filtering.
	ErrNoResources = errors.New("no searchable resources")
)

// SchemaViolationError wraps ErrSchemaViolation with a JSON-pointer-like path
// to the offending node in the query document.
type SchemaViolationError struct {
	Path   string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("%s at %s: %s", ErrSchemaViolation.Error(), e.Path, e.Reason)
}

func (e *SchemaViolationError) Unwrap() error { return ErrSchemaViolation }

// NewSchemaViolation creates a path-carrying schema violation error.
func NewSchemaViolation(path, format string, args ...any) error {
	return &SchemaViolationError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// UnknownAreaError wraps ErrUnknownArea with the kind and name that failed to resolve.
type UnknownAreaError struct {
	Kind string
	Name string
}

func (e *UnknownAreaError) Error() string {
	return fmt.Sprintf("%s: no %s named %q", ErrUnknownArea.Error(), e.Kind, e.Name)
}

func (e *UnknownAreaError) Unwrap() error { return ErrUnknownArea }

// NewUnknownArea creates an unknown named area error.
func NewUnknownArea(kind, name string) error {
	return &UnknownAreaError{Kind: kind, Name: name}
}
