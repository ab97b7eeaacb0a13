// Package uid provides identifier generators behind small interfaces so
// storage layers can choose between numeric and string keys.
package uid

// NumberID generates unique int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}
