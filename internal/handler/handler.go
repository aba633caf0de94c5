// Package handler is the HTTP layer of the admin API.
//
// Handlers receive bound and validated payloads from the pipeline in
// base.go, call the service layer and return the response body. Errors
// are left to the global error handler.
package handler
