package sqlerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/deppfellow/blogtemplates/internal/validation"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const relationshipsTable = "wp_nbt_categories_relationships_table"

func duplicateRelationship() *pgconn.PgError {
	return &pgconn.PgError{
		Severity:       "ERROR",
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		TableName:      relationshipsTable,
		ConstraintName: relationshipsTable + "_pkey",
	}
}

func TestMapCode(t *testing.T) {
	tests := []struct {
		state string
		want  Code
	}{
		{"23505", UniqueViolation},
		{"23503", ForeignKeyViolation},
		{"42P01", UndefinedTable},
		{"42P07", DuplicateTable},
		{"08006", ConnectionException},
		{"08", Other},
		{"XX000", Other},
	}

	for _, tt := range tests {
		if got := MapCode(tt.state); got != tt.want {
			t.Errorf("MapCode(%q) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	if got := Classify("noop", nil); got != nil {
		t.Fatalf("Classify(nil) = %v, want nil", got)
	}

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"no rows", pgx.ErrNoRows, errs.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), errs.ErrNotFound},
		{"unique violation", duplicateRelationship(), errs.ErrConstraintViolation},
		{"missing table", &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}, errs.ErrSchema},
		{"syntax error", &pgconn.PgError{Code: "42601"}, errs.ErrEngine},
		{"cancelled", context.Canceled, errs.ErrEngine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify("test op", tt.err)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("Classify() = %v, want kind %v", err, tt.kind)
			}
			if got := errs.KindOf(err); got != tt.kind {
				t.Fatalf("KindOf() = %v, want %v", got, tt.kind)
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("cause %v is not reachable from %v", tt.err, err)
			}
		})
	}
}

func TestClassifyKeepsDriverError(t *testing.T) {
	err := Classify("assign category", duplicateRelationship())

	var pgerr *pgconn.PgError
	if !errors.As(err, &pgerr) {
		t.Fatalf("errors.As(*pgconn.PgError) failed for %v", err)
	}
	if pgerr.ConstraintName != relationshipsTable+"_pkey" {
		t.Errorf("ConstraintName = %q", pgerr.ConstraintName)
	}
	if got := ErrCode(err); got != UniqueViolation {
		t.Errorf("ErrCode() = %q, want %q", got, UniqueViolation)
	}
}

func TestClassifyPassesStoreErrorsThrough(t *testing.T) {
	original := errs.NewStoreError("inner", errs.ErrValidation, errors.New("bad name"))
	wrapped := fmt.Errorf("outer: %w", original)

	if got := Classify("outer", wrapped); got != wrapped {
		t.Fatalf("Classify() = %v, want the input unchanged", got)
	}
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		message  string
		override bool
	}{
		{
			name:    "not found kind",
			err:     errs.NewStoreError("get template", errs.ErrNotFound, nil),
			status:  http.StatusNotFound,
			code:    "NOT_FOUND",
			message: "Resource not found",
		},
		{
			name:    "raw no rows",
			err:     pgx.ErrNoRows,
			status:  http.StatusNotFound,
			code:    "NOT_FOUND",
			message: "Resource not found",
		},
		{
			name:    "schema kind",
			err:     Classify("list templates", &pgconn.PgError{Code: "42P01"}),
			status:  http.StatusServiceUnavailable,
			code:    "SERVICE_UNAVAILABLE",
			message: "Templates store is not installed or out of date",
		},
		{
			name:     "duplicate relationship",
			err:      Classify("assign category", duplicateRelationship()),
			status:   http.StatusBadRequest,
			code:     "CATEGORY_ASSIGNMENT_ALREADY_EXISTS",
			message:  "A Category Assignment with this identifier already exists",
			override: true,
		},
		{
			name:    "engine failure",
			err:     Classify("list templates", errors.New("connection reset")),
			status:  http.StatusInternalServerError,
			code:    "INTERNAL_SERVER_ERROR",
			message: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var httpErr *errs.HTTPError
			if !errors.As(HandleError(tt.err), &httpErr) {
				t.Fatalf("HandleError() did not return an *errs.HTTPError")
			}

			got := struct {
				Status   int
				Code     string
				Message  string
				Override bool
			}{httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Override}
			want := struct {
				Status   int
				Code     string
				Message  string
				Override bool
			}{tt.status, tt.code, tt.message, tt.override}

			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("HandleError() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleErrorValidation(t *testing.T) {
	err := errs.NewStoreError("add template", errs.ErrValidation, validation.CustomValidationErrors{
		{Field: "name", Message: "is required"},
	})

	var httpErr *errs.HTTPError
	if !errors.As(HandleError(err), &httpErr) {
		t.Fatal("HandleError() did not return an *errs.HTTPError")
	}
	if httpErr.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", httpErr.Status, http.StatusBadRequest)
	}

	want := []errs.FieldError{{Field: "name", Error: "is required"}}
	if diff := cmp.Diff(want, httpErr.Errors); diff != "" {
		t.Errorf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleErrorKeepsHTTPErrors(t *testing.T) {
	in := errs.NewNotFoundError("Template not found", true, nil)
	if got := HandleError(in); got != in {
		t.Fatalf("HandleError() = %v, want the input unchanged", got)
	}
}

func TestGetEntityName(t *testing.T) {
	tests := []struct {
		table, column, want string
	}{
		{"", "template_id", "Template"},
		{"wp_nbt_templates_categories", "", "Template Category"},
		{"blog_nbt_templates", "", "Template"},
		{relationshipsTable, "", "Category Assignment"},
		{"widgets", "", "Widget"},
		{"", "", "record"},
	}

	for _, tt := range tests {
		if got := getEntityName(tt.table, tt.column); got != tt.want {
			t.Errorf("getEntityName(%q, %q) = %q, want %q", tt.table, tt.column, got, tt.want)
		}
	}
}

func TestExtractColumnForUniqueViolation(t *testing.T) {
	tests := map[string]string{
		"unique_templates_name":      "name",
		"wp_nbt_templates_name_key":  "name",
		relationshipsTable + "_pkey": "",
		"":                           "",
	}

	for constraint, want := range tests {
		if got := extractColumnForUniqueViolation(constraint); got != want {
			t.Errorf("extractColumnForUniqueViolation(%q) = %q, want %q", constraint, got, want)
		}
	}
}
