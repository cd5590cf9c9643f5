package storage

import "errors"

// Error kinds shared by every layer above storage. Callers match them with
// errors.Is; the concrete error always carries more context.
var (
	// ErrSchemaViolation covers unknown columns, type mismatches, duplicate
	// or missing primary keys and records built with the wrong arity.
	ErrSchemaViolation = errors.New("schema violation")

	// ErrNotFound is returned for missing tables, keys and indexes.
	ErrNotFound = errors.New("not found")

	// ErrIO wraps failures opening, reading or writing a backing file.
	ErrIO = errors.New("io failure")

	// ErrOutOfRange is returned when a slot index is beyond a page's records.
	ErrOutOfRange = errors.New("out of range")

	// ErrUnsupported marks syntax that parses but cannot be evaluated.
	ErrUnsupported = errors.New("unsupported")
)
