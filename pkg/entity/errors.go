package entity

import (
	"errors"
	"strings"
)

// Validation error codes.
const (
	CodeRequired     = "required"
	CodeTypeMismatch = "type_mismatch"
	CodeEnumInvalid  = "enum_invalid"
	CodeFormat       = "format_invalid"
	CodeRange        = "out_of_range"
	CodeLength       = "length_invalid"
	CodeUnknownField = "unknown_field"
	CodeForbidden    = "forbidden_field"
	CodeShape        = "shape_mismatch"
)

// ErrConfig reports a misconfigured entity binding. It surfaces at
// registry-construction time, never per request.
var ErrConfig = errors.New("invalid entity config")

// FieldError is one validation failure, tied to the field that caused it.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Message
}

// Errors collects the validation failures of one request.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// IsValidation reports whether err is a validation failure produced by this
// package.
func IsValidation(err error) bool {
	var fe FieldError
	var es Errors
	return errors.As(err, &fe) || errors.As(err, &es)
}
