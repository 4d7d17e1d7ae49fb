// Package validate wraps go-playground/validator with the application's
// rules and turns its errors into per-field messages.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
)

const (
	TagRequired = "required"
	TagEmail    = "email"
	TagAppRole  = "app_role"
)

type Validator struct {
	validate *validator.Validate
}

// New returns a validator that names fields after their `field` tag, falling
// back to the json tag and then the Go field name.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"field", "json"} {
			name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation(TagAppRole, func(fl validator.FieldLevel) bool {
		_, err := domain.ParseRole(fl.Field().String())
		return err == nil
	})

	return &Validator{validate: v}
}

// Struct validates s and returns a *ValidationError listing every failing
// field at once.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// Var validates a single value against tag.
func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

// ValidationError maps field names to human readable messages.
type ValidationError struct {
	Fields map[string]string `json:"fieldErrors"`
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, len(names))
	for i, name := range names {
		msgs[i] = e.Fields[name]
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Add records a message for field, keeping the first one reported.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	out := &ValidationError{Fields: make(map[string]string, len(errs))}
	for _, fe := range errs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case TagRequired:
		return fmt.Sprintf("%s is required", field)
	case TagEmail:
		return fmt.Sprintf("%s must be a valid email address", field)
	case TagAppRole:
		return fmt.Sprintf("%s must be one of member, admin, superadmin (got %q)", field, fe.Value())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
