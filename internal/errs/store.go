package errs

import (
	"errors"
	"fmt"
)

// Kinds of templates store failures. Match them with errors.Is.
var (
	// ErrSchema means the engine rejected DDL (create, migrate, drop).
	ErrSchema = errors.New("schema error")

	// ErrNotFound means a lookup by id returned nothing. Store reads report
	// absence with a nil result instead; callers that need an error wrap it.
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation means the engine refused a write because of a
	// key or check constraint, e.g. a duplicate relationship row.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrEngine is every other query or connectivity failure.
	ErrEngine = errors.New("engine error")

	// ErrValidation means the input was rejected before any SQL ran.
	ErrValidation = errors.New("validation error")
)

// StoreError is the error returned by failing store operations.
//
// It unwraps to both its kind and the underlying cause, so errors.Is(err,
// ErrEngine) and errors.As(err, &pgErr) both work on the same value.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

// NewStoreError wraps err as a failure of op with the given kind.
func NewStoreError(op string, kind, err error) *StoreError {
	return &StoreError{Op: op, Kind: kind, Err: err}
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind of a store error, or nil if err is not one.
func KindOf(err error) error {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Kind
	}
	return nil
}
