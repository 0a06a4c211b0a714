package model

import "errors"

// ErrValidation is the kind shared by every ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Fields returns the error as a field → message map for form rendering.
func (e *ValidationError) Fields() map[string]string {
	return map[string]string{e.Field: e.Message}
}
