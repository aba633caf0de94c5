package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/validation"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrCode reports the mapped Code for an error chain, or Other.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return MapCode(pgerr.Code)
	}
	return Other
}

// ConvertPgError converts a raw PostgreSQL error into an *Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// Classify wraps a driver error from store operation op into an
// *errs.StoreError of the matching kind. Errors that already are store
// errors pass through untouched; nil stays nil.
//
// Engine failures are passed through, never retried or rewritten: the
// cause stays reachable with errors.As.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var storeErr *errs.StoreError
	if errors.As(err, &storeErr) {
		return err
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return errs.NewStoreError(op, errs.ErrNotFound, err)
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		converted := ConvertPgError(pgerr)
		switch {
		case converted.Code.IsConstraint():
			return errs.NewStoreError(op, errs.ErrConstraintViolation, converted)
		case converted.Code.IsSchema():
			return errs.NewStoreError(op, errs.ErrSchema, converted)
		default:
			return errs.NewStoreError(op, errs.ErrEngine, converted)
		}
	}

	// Connectivity failures, cancelled contexts and scan errors alike.
	return errs.NewStoreError(op, errs.ErrEngine, err)
}

// generateErrorCode builds a machine-readable <DOMAIN>_<ACTION> code,
// e.g. TEMPLATE_CATEGORY_ALREADY_EXISTS.
func generateErrorCode(tableName string, errType Code) string {
	domain := strings.ToUpper(strings.ReplaceAll(getEntityName(tableName, ""), " ", "_"))

	action := "ERROR"
	switch errType {
	case ForeignKeyViolation:
		action = "NOT_FOUND"
	case UniqueViolation:
		action = "ALREADY_EXISTS"
	case NotNullViolation:
		action = "REQUIRED"
	case CheckViolation:
		action = "INVALID"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

// formatUserFriendlyMessage produces a message meant for the admin UI, not logs.
func formatUserFriendlyMessage(sqlErr *Error) string {
	entityName := getEntityName(sqlErr.TableName, sqlErr.ColumnName)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return fmt.Sprintf("The referenced %s does not exist", entityName)

	case UniqueViolation:
		// "identifier" is replaced later if the column can be inferred.
		return fmt.Sprintf("A %s with this identifier already exists", entityName)

	case NotNullViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName == "" {
			fieldName = "field"
		}
		return fmt.Sprintf("The %s is required", fieldName)

	case CheckViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName != "" {
			return fmt.Sprintf("The %s value does not meet required conditions", fieldName)
		}
		return "One or more values do not meet required conditions"

	default:
		return "An error occurred while processing your request"
	}
}

// storeEntities names the store tables by their unprefixed suffix. Longer
// suffixes come first so nbt_templates_categories isn't read as nbt_templates.
var storeEntities = []struct {
	suffix string
	entity string
}{
	{"nbt_categories_relationships_table", "category assignment"},
	{"nbt_templates_categories", "template category"},
	{"nbt_templates", "template"},
}

// getEntityName infers an entity name from table/column data.
//
// Priority: a "<x>_id" column, then a known store table, then the table
// name crudely singularized, then "record".
func getEntityName(tableName, columnName string) string {
	if columnName != "" && strings.HasSuffix(strings.ToLower(columnName), "_id") {
		entity := strings.TrimSuffix(strings.ToLower(columnName), "_id")
		return humanizeText(entity)
	}

	for _, known := range storeEntities {
		if tableName != "" && strings.HasSuffix(tableName, known.suffix) {
			return humanizeText(known.entity)
		}
	}

	if tableName != "" {
		entity := tableName
		if strings.HasSuffix(entity, "s") && len(entity) > 1 {
			entity = entity[:len(entity)-1]
		}
		return humanizeText(entity)
	}

	return "record"
}

// humanizeText converts "first_name" into "First Name".
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

var uniqueKeyPattern = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)

// extractColumnForUniqueViolation infers the column from a constraint
// named "unique_<table>_<column>" or "<table>_<column>_(key|ukey)".
func extractColumnForUniqueViolation(constraintName string) string {
	if constraintName == "" {
		return ""
	}

	if strings.HasPrefix(constraintName, "unique_") {
		parts := strings.Split(constraintName, "_")
		if len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}

	matches := uniqueKeyPattern.FindStringSubmatch(constraintName)
	if len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// HandleError converts a store or driver error into an *errs.HTTPError.
//
// Output:
//   - *errs.HTTPError: returned unchanged
//   - validation kind: 400 with field errors
//   - not found kind or ErrNoRows: 404
//   - schema kind: 503, the store is not installed or out of date
//   - pgconn.PgError constraint violations: 400 with a friendly message
//   - anything else: 500
func HandleError(err error) error {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	switch {
	case errors.Is(err, errs.ErrValidation):
		return errs.NewBadRequestError("Validation failed", true, nil, validation.FieldErrors(err), nil)
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return errs.NewNotFoundError("Resource not found", false, nil)
	case errors.Is(err, errs.ErrSchema):
		return errs.NewServiceUnavailableError("Templates store is not installed or out of date")
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		sqlErr := ConvertPgError(pgerr)

		errorCode := generateErrorCode(sqlErr.TableName, sqlErr.Code)
		userMessage := formatUserFriendlyMessage(sqlErr)

		switch sqlErr.Code {
		case ForeignKeyViolation:
			return errs.NewBadRequestError(userMessage, false, &errorCode, nil, nil)

		case UniqueViolation:
			if columnName := extractColumnForUniqueViolation(sqlErr.ConstraintName); columnName != "" {
				userMessage = strings.ReplaceAll(userMessage, "identifier", humanizeText(columnName))
			}
			return errs.NewBadRequestError(userMessage, true, &errorCode, nil, nil)

		case NotNullViolation:
			fieldErrors := []errs.FieldError{
				{
					Field: strings.ToLower(sqlErr.ColumnName),
					Error: "is required",
				},
			}
			return errs.NewBadRequestError(userMessage, true, &errorCode, fieldErrors, nil)

		case CheckViolation:
			return errs.NewBadRequestError(userMessage, true, &errorCode, nil, nil)

		default:
			return errs.NewInternalServerError()
		}
	}

	return errs.NewInternalServerError()
}
