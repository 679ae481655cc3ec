package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ValidateRequest(v any) error {
	return validate.Struct(v)
}

// DecodeAndValidate decodes a JSON request body into v and validates it.
// Malformed bodies return an error that is not validator.ValidationErrors.
func DecodeAndValidate(r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return ValidateRequest(v)
}

// ValidationError is one failing request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FormatValidationErrors converts validator errors to field messages; any
// other error yields nil
func FormatValidationErrors(err error) []ValidationError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	formatted := make([]ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		formatted = append(formatted, ValidationError{
			Field:   e.Field(),
			Message: errorMessage(e),
		})
	}
	return formatted
}

// RespondWithDecodeError answers a failed DecodeAndValidate call
func RespondWithDecodeError(w http.ResponseWriter, err error) {
	if fieldErrors := FormatValidationErrors(err); fieldErrors != nil {
		RespondWithValidationErrors(w, fieldErrors)
		return
	}
	RespondWithError(w, http.StatusBadRequest, "invalid request body")
}

func errorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	default:
		return "Invalid value"
	}
}
