// Package repository is the templates store: the SQL behind templates,
// categories and the relationships between them.
//
// Every statement is rendered once per table prefix (see queries.go) and
// run through the DB interface, so a pgx pool and a pgxmock pool are
// interchangeable.
package repository
