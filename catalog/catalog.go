// Package catalog provides the host-side type system consumed by the pushdown
// analyzer and the value conversion matrix.
//
// Three lookup services are exposed:
//   - TypeCatalog: string input/output functions per type and explicit casts
//   - OperatorCatalog: operator name and defining namespace per operator OID
//   - RelationCatalog: foreign table definitions (columns and FDW options)
//
// The builtin StaticCatalog is immutable after construction and safe for
// concurrent readers.
package catalog

import (
	"context"
	"errors"
)

var (
	// ErrTypeLookup is returned when the type system has no function for a
	// type or type pair. Callers treat it as fatal.
	ErrTypeLookup = errors.New("cache lookup failed")

	// ErrInvalidInput is returned by input functions for malformed text.
	ErrInvalidInput = errors.New("invalid input syntax")

	// ErrOutOfRange is returned when a value does not fit its target type.
	ErrOutOfRange = errors.New("value out of range")

	// ErrStringTooLong is returned when text exceeds a declared length.
	ErrStringTooLong = errors.New("value too long")

	// ErrRelationNotFound is returned by RelationCatalog lookups.
	ErrRelationNotFound = errors.New("relation not found")
)

// InputFunc converts the text representation of a value into its Go value.
// typmod is -1 when the column has no declared modifier.
type InputFunc func(text string, typmod int32) (any, error)

// OutputFunc renders a value to its canonical text representation.
type OutputFunc func(value any) (string, error)

// CastFunc converts a value of one type into another type.
// typmod is the target modifier (-1 if none).
type CastFunc func(value any, typmod int32) (any, error)

// TypeCatalog resolves per-type conversion functions.
// Implementations MUST be goroutine-safe.
type TypeCatalog interface {
	// InputFunction returns the string input routine of a type.
	// Returns an error wrapping ErrTypeLookup if the type is unknown.
	InputFunction(typ OID) (InputFunc, error)

	// OutputFunction returns the string output routine of a type.
	// Returns an error wrapping ErrTypeLookup if the type is unknown.
	OutputFunction(typ OID) (OutputFunc, error)

	// CastFunction returns the explicit cast from source to target.
	// Returns an error wrapping ErrTypeLookup if no cast exists.
	CastFunction(source, target OID) (CastFunc, error)
}

// OperatorCatalog resolves operator metadata.
// Implementations MUST be goroutine-safe.
type OperatorCatalog interface {
	// Operator returns the operator with the given OID.
	// Returns an error wrapping ErrTypeLookup if it does not exist.
	Operator(oid OID) (*Operator, error)
}

// RelationCatalog resolves foreign table definitions.
// Implementations MUST be goroutine-safe.
type RelationCatalog interface {
	// Relations returns all foreign tables.
	Relations(ctx context.Context) ([]*Relation, error)

	// Relation returns a foreign table by name.
	// Returns an error wrapping ErrRelationNotFound if it does not exist.
	Relation(ctx context.Context, name string) (*Relation, error)
}
