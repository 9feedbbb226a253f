/*
errors.go - Centralized error types for the bookkeeping engine

PURPOSE:
  All engine error kinds in one place. The API layer maps them to HTTP
  statuses; nothing inside the engine ever swallows an InvalidInput or
  NotFound (the arrears classifier's tolerance of malformed dates is the
  one documented exception, see arrears.go).

ERROR CATEGORIES:
  1. InvalidInput - unparseable number, empty required name, zero-quantity
     transfer. Always reported back to the caller.
  2. NotFound     - referenced seller/client/transaction absent.
  3. StoreFailure - opaque I/O error bubbled from the Store. The engine
     never retries; retry policy belongs to the store implementation.

USAGE:
  Callers classify with errors.Is / the helpers below:

    if ledger.IsInvalidInput(err) { ... 400 ... }
    if ledger.IsNotFound(err)     { ... 404 ... }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is the root of all user-input rejections.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStoreFailure wraps opaque persistence errors.
	ErrStoreFailure = errors.New("store failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidInputError names the offending field so the caller can report it.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// NotFoundError identifies the missing record.
type NotFoundError struct {
	Kind string // "seller", "client", "transaction", "transfer", "item"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// StoreError wraps an I/O failure from a Store implementation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStoreFailure }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsStoreFailure(err error) bool { return errors.Is(err, ErrStoreFailure) }
