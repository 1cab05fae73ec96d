package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/render"
)

// Validator wraps go-playground validator
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator instance. Besides the built-in tags it
// understands "nomarkup", which rejects values carrying a script tag.
func New() *Validator {
	v := validator.New()

	// Report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("nomarkup", func(fl validator.FieldLevel) bool {
		return !render.ContainsScriptTag(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Validate validates a struct and returns the first failing field as a
// *errors.ValidationError, or nil.
func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return errors.Validation("", "", err.Error())
	}

	fe := fieldErrs[0]
	return errors.Validation(fe.Field(), fmt.Sprintf("%v", fe.Value()), msgForTag(fe))
}

// msgForTag returns a human-readable message for a validation tag
func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "nomarkup":
		return "must not contain markup"
	default:
		return fmt.Sprintf("failed validation for tag: %s", fe.Tag())
	}
}
