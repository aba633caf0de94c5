// Package sqlerr specifically handles database driver errors.
//
// It classifies PostgreSQL errors by SQLSTATE into store error kinds
// (Classify) and converts them into user-friendly HTTP errors at the
// transport edge (HandleError).
package sqlerr

import "fmt"

// Code is a coarse classification of a SQLSTATE.
type Code string

const (
	Other               Code = "other"
	NotNullViolation    Code = "not_null_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	UniqueViolation     Code = "unique_violation"
	CheckViolation      Code = "check_violation"
	ExclusionViolation  Code = "exclusion_violation"
	UndefinedTable      Code = "undefined_table"
	UndefinedColumn     Code = "undefined_column"
	DuplicateTable      Code = "duplicate_table"
	SyntaxError         Code = "syntax_error"
	InsufficientPrivs   Code = "insufficient_privilege"
	ConnectionException Code = "connection_exception"
)

// MapCode maps a SQLSTATE string to a Code.
//
// Class 08 is matched by prefix; everything unknown is Other.
func MapCode(sqlState string) Code {
	switch sqlState {
	case "23502":
		return NotNullViolation
	case "23503":
		return ForeignKeyViolation
	case "23505":
		return UniqueViolation
	case "23514":
		return CheckViolation
	case "23P01":
		return ExclusionViolation
	case "42P01":
		return UndefinedTable
	case "42703":
		return UndefinedColumn
	case "42P07":
		return DuplicateTable
	case "42601":
		return SyntaxError
	case "42501":
		return InsufficientPrivs
	}

	if len(sqlState) == 5 && sqlState[:2] == "08" {
		return ConnectionException
	}
	return Other
}

// IsConstraint reports whether the code is an integrity constraint violation.
func (c Code) IsConstraint() bool {
	switch c {
	case NotNullViolation, ForeignKeyViolation, UniqueViolation, CheckViolation, ExclusionViolation:
		return true
	}
	return false
}

// IsSchema reports whether the code means the schema is missing or malformed.
func (c Code) IsSchema() bool {
	switch c {
	case UndefinedTable, UndefinedColumn, DuplicateTable:
		return true
	}
	return false
}

// Severity mirrors the PostgreSQL message severity.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityLog     Severity = "LOG"
)

// MapSeverity maps the severity string of a PgError.
func MapSeverity(severity string) Severity {
	switch Severity(severity) {
	case SeverityFatal, SeverityPanic, SeverityWarning, SeverityNotice, SeverityDebug, SeverityInfo, SeverityLog:
		return Severity(severity)
	default:
		return SeverityError
	}
}

// Error is the normalized form of a PostgreSQL error.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Severity, e.DatabaseCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.driverErr
}
