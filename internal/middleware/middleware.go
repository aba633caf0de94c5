// Package middleware holds the echo middleware of the admin API: request
// IDs, request-scoped loggers, New Relic tracing, request logging, panic
// recovery and the global error handler.
package middleware
