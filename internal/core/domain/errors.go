package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist, or that an
	// update targeted an absent resource while create-on-update is disallowed.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates malformed construction input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidInput indicates a payload that cannot be parsed as a resource.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown backend or value type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Write precondition errors.

	// ErrPreconditionRequired indicates the resource type demands a concurrency
	// token and the request carried none. No write is attempted.
	ErrPreconditionRequired = errors.New("precondition required")

	// ErrPreconditionFailed indicates the supplied concurrency token does not
	// match the stored version, or a concurrent writer won the race.
	ErrPreconditionFailed = errors.New("precondition failed")
)
