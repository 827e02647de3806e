package capture

import (
	"errors"
	"fmt"
)

const (
	CodeValidation = "VALIDATION"
	CodeConnection = "CONNECTION"
	CodeNavigation = "NAVIGATION"
	CodeSelection  = "SELECTION"
	CodeNotFound   = "NOT_FOUND"
	CodeCapture    = "CAPTURE"
)

// CodedError is the pipeline error type. Every failure a front end can see
// carries one of the Code constants above.
type CodedError struct {
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

// Fatal reports whether the error aborts a pipeline run.
func (e *CodedError) Fatal() bool { return e.Code != CodeSelection }

func newError(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

func newFieldError(field, msg string) error {
	return &CodedError{Code: CodeValidation, Field: field, Message: msg}
}

// HasCode reports whether err is a *CodedError with the given code.
func HasCode(err error, code string) bool {
	var coded *CodedError
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}
