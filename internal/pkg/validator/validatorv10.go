package validator

import (
	"errors"
	"reflect"
	"strings"

	gpv "github.com/go-playground/validator/v10"
)

// V10 implements Validator on top of github.com/go-playground/validator.
type V10 struct {
	validate *gpv.Validate
}

// NewV10 builds a validator that reports field names from the json tag, so
// error messages line up with the request payload.
func NewV10() *V10 {
	v := gpv.New(gpv.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &V10{validate: v}
}

// Validate implements Validator.
func (v *V10) Validate(data any) error {
	return v.validate.Struct(data)
}

// FieldMessages flattens a validation error into per-field messages for the
// HTTP error body. Non-validation errors yield nil.
func FieldMessages(err error) map[string]string {
	var verrs gpv.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = messageFor(fe)
	}
	return fields
}

func messageFor(fe gpv.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a phone number in E.164 format"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "number":
		return "must contain digits only"
	case "datetime":
		return "must be a date in " + fe.Param() + " format"
	default:
		return "failed on rule: " + fe.Tag()
	}
}
