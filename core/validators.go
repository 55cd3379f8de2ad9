package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var (
	// custom validation tags
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	notBlankTag = "notblank"

	identTag   = "ident"
	identRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

	nameTags = []string{"json", "yaml", "mapstructure"}
)

// NewValidator instantiates the validator for use.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Use serialization tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range nameTags {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(identTag, identValidation)
	return validate
}

// StructError converts the validator.ValidationErrors of a struct validation into a *ValidationError.
// Any other error is returned wrapped with msg.
func StructError(err error, msg string) error {
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return errors.Wrap(err, msg)
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, fe := range vErrs {
		text := "failed on the '" + fe.Tag() + "' rule"
		if fe.Param() != "" {
			text += " (" + fe.Param() + ")"
		}
		flds = append(flds, FieldError{Field: fe.Namespace(), Error: text})
	}
	return NewValidationError(errors.New(msg), flds...)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

// identValidation only allows lower snake case SQL identifiers.
func identValidation(fl validator.FieldLevel) bool {
	return identRegex.MatchString(fl.Field().String())
}
