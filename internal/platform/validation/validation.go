// Package validation carries the request-level validation failure kind used
// across services and the struct tag checks for transfer objects.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error is a validation failure. Handlers report it as 400 and it is never retried.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func Errorf(format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Wrap turns err into a validation failure, keeping its message.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) {
		return err
	}
	return &Error{Message: err.Error()}
}

func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

var tagMessages = map[string]string{
	"required": "is required",
	"uuid":     "must be a valid uuid",
	"oneof":    "must be one of [%s]",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
}

// Struct checks the validate tags on v and returns an *Error listing every
// failing field, or nil.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	return &Error{Message: formatFieldErrors(fieldErrs)}
}

func formatFieldErrors(fieldErrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if strings.Contains(msg, "%s") {
			param := fe.Param()
			if fe.Tag() == "oneof" {
				param = strings.Join(strings.Fields(param), ", ")
			}
			msg = fmt.Sprintf(msg, param)
		}
		msgs = append(msgs, fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:]+" "+msg)
	}
	return strings.Join(msgs, ", ")
}
