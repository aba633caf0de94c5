// Package errs defines the error kinds of the templates store and the
// HTTP error shape the admin API responds with.
//
// Store errors carry a kind (ErrSchema, ErrNotFound, ErrConstraintViolation,
// ErrEngine, ErrValidation) that callers match with errors.Is. HTTPError is
// only built at the transport edge.
package errs
