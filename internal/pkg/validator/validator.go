// Package validator wraps struct validation behind a small interface so the
// business layer never imports the validation library directly.
package validator

// Validator checks a tagged struct and reports the first rule violation.
type Validator interface {
	// Validate returns nil when data passes every rule on its fields.
	Validate(data any) error
}
