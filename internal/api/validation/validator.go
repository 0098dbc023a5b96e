package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/osa911/portfolio/internal/api/dto/common"

	"github.com/go-playground/validator/v10"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// New returns a validator with the custom rules registered and field
// names reported by their JSON tag
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonTagName)
	RegisterValidators(v)
	return v
}

// RegisterValidators registers custom validators
func RegisterValidators(v *validator.Validate) {
	// Replaces the built-in RFC 5322 check with the stricter address shape we accept
	_ = v.RegisterValidation("email", validateEmail)
	_ = v.RegisterValidation("singleline", validateSingleLine)
}

// validateEmail checks if the email is valid
func validateEmail(fl validator.FieldLevel) bool {
	return emailRegex.MatchString(fl.Field().String())
}

// validateSingleLine rejects values containing line breaks
func validateSingleLine(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), "\r\n")
}

func jsonTagName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// Message renders a field error as user-facing text
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "singleline":
		return fmt.Sprintf("%s must be a single line", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// FormatValidationError formats validation errors into a user-friendly response.
// Errors that are not validator errors yield nil.
func FormatValidationError(err error) []common.ValidationError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	out := make([]common.ValidationError, 0, len(validationErrors))
	for _, e := range validationErrors {
		out = append(out, common.ValidationError{
			Field:   e.Field(),
			Message: Message(e),
		})
	}
	return out
}

// FieldMessages maps each invalid field to its first error message
func FieldMessages(err error) map[string]string {
	formatted := FormatValidationError(err)
	if formatted == nil {
		return nil
	}
	out := make(map[string]string, len(formatted))
	for _, e := range formatted {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}
