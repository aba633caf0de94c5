// Package service contains the operations the admin API exposes.
//
// It sits between the handler and repository layers. Store reads report
// a missing record with a nil result; here that becomes an errs.ErrNotFound
// store error so handlers can answer 404.
package service
