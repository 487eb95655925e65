package store

import "errors"

// Adapters return backend errors unchanged except for these translations.
var (
	// ErrNotFound marks a write that referenced a missing entity. Lookups
	// never return it; they return an empty slice instead.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedOperation is returned by operations a backend cannot
	// express, such as RawQuery on the document backend.
	ErrUnsupportedOperation = errors.New("operation not supported by this backend")

	// ErrTransactionFailure wraps the cause of a rolled back transaction.
	ErrTransactionFailure = errors.New("transaction failed")

	// ErrConnectivity wraps failures to reach a backend.
	ErrConnectivity = errors.New("database connectivity failure")

	// ErrSelfReferral is returned when a fan is set as their own referrer.
	ErrSelfReferral = errors.New("a fan cannot refer themselves")

	// ErrUnknownDatabaseType is returned by the factory for a type it has no
	// builder for.
	ErrUnknownDatabaseType = errors.New("unknown database type")

	// ErrFactoryClosed is returned by the factory after Close.
	ErrFactoryClosed = errors.New("adapter factory closed")
)

// First returns the single element of a lookup result, or nil.
func First[T any](rows []*T) *T {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
