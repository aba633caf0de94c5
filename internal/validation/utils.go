package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/deppfellow/blogtemplates/internal/errs"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validatable is implemented by payload types that know how to validate themselves.
type Validatable interface {
	Validate() error
}

// CustomValidationError is a validation issue that struct tags cannot express.
type CustomValidationError struct {
	Field   string
	Message string
}

// CustomValidationErrors is a slice of custom validation errors that satisfies error.
type CustomValidationErrors []CustomValidationError

func (c CustomValidationErrors) Error() string {
	return "Validation failed"
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance. Field names in errors
// come from the json tag, so they match what clients send.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// ValidateStruct runs the struct tag rules of v.
func ValidateStruct(v any) error {
	return Validator().Struct(v)
}

// BindAndValidate binds request data into payload and validates it.
//
// payload must be a pointer so c.Bind can populate it. Failures come back
// as *errs.HTTPError (400) with field-level errors.
func BindAndValidate(c echo.Context, payload Validatable) error {
	if err := c.Bind(payload); err != nil {
		message := "Invalid request body"
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			if msg, ok := echoErr.Message.(string); ok {
				message = msg
			}
		}
		return errs.NewBadRequestError(message, false, nil, nil, nil)
	}

	if err := payload.Validate(); err != nil {
		return errs.NewBadRequestError("Validation failed", true, nil, FieldErrors(err), nil)
	}

	return nil
}

// FieldErrors extracts field errors from anywhere in err's chain. It
// understands validator.ValidationErrors and CustomValidationErrors and
// returns nil for anything else.
func FieldErrors(err error) []errs.FieldError {
	var fieldErrors []errs.FieldError

	var customValidationErrors CustomValidationErrors
	if errors.As(err, &customValidationErrors) {
		for _, e := range customValidationErrors {
			fieldErrors = append(fieldErrors, errs.FieldError{
				Field: e.Field,
				Error: e.Message,
			})
		}
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fieldErrors
	}

	for _, e := range validationErrors {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: strings.ToLower(e.Field()),
			Error: message(e),
		})
	}

	return fieldErrors
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"

	case "min":
		if e.Type().Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		if e.Type().Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())

	case "max":
		if e.Type().Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return fmt.Sprintf("must not exceed %s", e.Param())

	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())

	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())

	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())

	case "unique":
		return "must not contain duplicates"

	case "dive":
		return "some items are invalid"

	default:
		if e.Param() != "" {
			return fmt.Sprintf("%s: %s:%s", strings.ToLower(e.Field()), e.Tag(), e.Param())
		}
		return fmt.Sprintf("%s: %s", strings.ToLower(e.Field()), e.Tag())
	}
}
