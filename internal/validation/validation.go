// Package validation checks client forms and API request models against
// their `validate` tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violation is one failed rule on one field.
type Violation struct {
	Field string
	Rule  string
	Param string
}

func (v Violation) String() string {
	switch v.Rule {
	case "required", "required_without":
		return v.Field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", v.Field, v.Param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", v.Field, v.Param)
	case "min":
		return fmt.Sprintf("%s must have at least %s characters", v.Field, v.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", v.Field, v.Param)
	case "email":
		return v.Field + " must be a valid email"
	default:
		return fmt.Sprintf("%s failed %s", v.Field, v.Rule)
	}
}

// Error lists every violated field of a form in one message.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the names of the violated fields in declaration order.
func (e *Error) Fields() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Field
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates s against its `validate` tags. It returns *Error when
// one or more rules fail.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &Error{Violations: make([]Violation, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, Violation{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}
