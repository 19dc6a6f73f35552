package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"circlo/internal/app/middleware"
)

// Validator checks struct tags on bus messages. Failures wrap
// middleware.ErrValidation.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *Validator) Validate(ctx context.Context, message any) error {
	if message == nil {
		return nil
	}
	rv := reflect.ValueOf(message)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	err := v.v.StructCtx(ctx, message)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, describe(fe))
		}
		return fmt.Errorf("%w: %s", middleware.ErrValidation, strings.Join(parts, "; "))
	}
	return fmt.Errorf("%w: %v", middleware.ErrValidation, err)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "datetime":
		return field + " must be a date formatted " + fe.Param()
	case "oneof":
		return field + " must be one of " + fe.Param()
	case "len":
		return field + " must have length " + fe.Param()
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

var _ middleware.Validator = (*Validator)(nil)
