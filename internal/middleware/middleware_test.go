package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func runRequestID(t *testing.T, header string) (string, string) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(RequestIDHeader, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := RequestID()(func(c echo.Context) error {
		seen = GetRequestID(c)
		return nil
	})(c)
	if err != nil {
		t.Fatalf("RequestID: %v", err)
	}
	return seen, rec.Header().Get(RequestIDHeader)
}

func TestRequestIDKeepsCallerID(t *testing.T) {
	seen, echoed := runRequestID(t, "abc-123")
	if seen != "abc-123" || echoed != "abc-123" {
		t.Fatalf("request id = %q, header = %q; want abc-123 for both", seen, echoed)
	}
}

func TestRequestIDGenerates(t *testing.T) {
	for _, header := range []string{"", strings.Repeat("x", maxRequestIDLength+1)} {
		seen, echoed := runRequestID(t, header)
		if seen != echoed {
			t.Fatalf("context id %q differs from header %q", seen, echoed)
		}
		id, err := uuid.Parse(seen)
		if err != nil {
			t.Fatalf("generated id %q is not a UUID: %v", seen, err)
		}
		if id.Version() != 7 {
			t.Fatalf("generated id version = %d, want 7", id.Version())
		}
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"http error", errs.NewNotFoundError("gone", false, nil), http.StatusNotFound},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed},
		{"schema kind", errs.NewStoreError("ListTemplates", errs.ErrSchema, nil), http.StatusServiceUnavailable},
		{"validation kind", errs.NewStoreError("AddTemplate", errs.ErrValidation, nil), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("%s: errorStatus() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestResourceAttribute(t *testing.T) {
	if got := resourceAttribute("/api/v1/categories/:id"); got != "store.category_id" {
		t.Errorf("categories route = %q", got)
	}
	for _, route := range []string{"/api/v1/templates/:id", "/api/v1/templates/:id/categories"} {
		if got := resourceAttribute(route); got != "store.template_id" {
			t.Errorf("resourceAttribute(%q) = %q, want store.template_id", route, got)
		}
	}
}
