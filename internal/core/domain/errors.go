package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync cycle is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// Pipeline Errors.

	// ErrTransport indicates a network failure or timeout on any fetch.
	// Per-record transport failures are retryable.
	ErrTransport = errors.New("transport error")

	// ErrParse indicates a document did not have the expected structure.
	ErrParse = errors.New("unexpected document structure")

	// ErrUnparseableDate indicates a date value could not be normalised.
	ErrUnparseableDate = errors.New("unparseable date")

	// ErrKeyNotResolvable indicates the reference search found no replacement key.
	ErrKeyNotResolvable = errors.New("key not resolvable")

	// ErrNotModified indicates the snapshot has not changed since the last download.
	ErrNotModified = errors.New("snapshot not modified")

	// ErrPortalUnavailable indicates the portal circuit breaker is open.
	ErrPortalUnavailable = errors.New("portal unavailable")
)
