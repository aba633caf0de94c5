// Package validation contains the logic for validating typed inputs,
// both store inputs (UpdateTemplateInput) and admin API request payloads.
//
// It uses the `validator` library to enforce rules defined in struct tags
// and extracts validation errors into field errors the admin UI understands.
package validation
