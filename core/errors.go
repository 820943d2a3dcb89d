package core

import "github.com/pkg/errors"

// FieldError pins an error message to a single payload field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries per-field errors so the API can render a field map
// instead of a bare message.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals an unrecoverable integrity problem; the server error
// handler turns it into a graceful stop.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
