// Package apperr defines the error taxonomy shared by every layer of the
// collection/index stack. Callers match with errors.Is; HTTP translation
// lives in infrastructure/api/middleware.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap with fmt.Errorf("...: %w", ErrX) to attach detail
// while remaining matchable via errors.Is.
var (
	// ErrUnknownCollection is returned when a named collection does not exist.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrUnknownColumn is returned when a named column is absent from a collection's table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrUnknownModel is returned when no embedder is registered under a requested (path, variant).
	ErrUnknownModel = errors.New("unknown model")
	// ErrUnknownHandle is returned when a model handle does not resolve to a loaded embedder.
	ErrUnknownHandle = errors.New("unknown model handle")
	// ErrColumnNotIndexed is returned when a search targets a column with no vector index.
	ErrColumnNotIndexed = errors.New("column not indexed")
	// ErrAlreadyExists is returned when a create operation targets a name already in use.
	ErrAlreadyExists = errors.New("already exists")
	// ErrBadRequest is returned for malformed caller input (bad flags, bad JSON body, bad query).
	ErrBadRequest = errors.New("bad request")
	// ErrCorruptIndex is returned when an on-disk ANN index is missing or fails to parse.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrCorruptConfig is returned when a collection's config.json fails to parse.
	// A missing config.json is reported as ErrUnknownCollection.
	ErrCorruptConfig = errors.New("corrupt config")
	// ErrDimMismatch is returned when a vector's dimensionality disagrees with an index's configured dimensionality.
	ErrDimMismatch = errors.New("dimension mismatch")
	// ErrNotInitialized is returned when an operation is attempted on an index before it is opened or loaded.
	ErrNotInitialized = errors.New("not initialized")
	// ErrIoError is returned for filesystem failures unrelated to parsing (permissions, disk full, missing path).
	ErrIoError = errors.New("io error")
	// ErrStorageError is returned for columnar-store failures (SQL execution, connection, schema).
	ErrStorageError = errors.New("storage error")
	// ErrModelError is returned for embedder/runtime failures (tokenization, inference, model load).
	ErrModelError = errors.New("model error")
)

// Wrap attaches context to a sentinel while keeping it matchable by errors.Is.
func Wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
