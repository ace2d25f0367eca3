package booking

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by BookingError.
const (
	CodeValidation         = "validation"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeIllegalTransition  = "illegal_transition"
	CodeVerificationFailed = "verification_failed"
	CodeInternal           = "internal"
)

type BookingError struct {
	Code    string
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BookingError) Unwrap() error { return e.Err }

func newError(code, msg string, err error) error {
	return &BookingError{Code: code, Message: msg, Err: err}
}

// HTTPStatus maps err to the status code the API answers with.
func HTTPStatus(err error) int {
	var be *BookingError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}
	switch be.Code {
	case CodeValidation, CodeVerificationFailed:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeIllegalTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns the code of err, or CodeInternal.
func ErrorCode(err error) string {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// ErrorMessage returns the client-facing message of err.
func ErrorMessage(err error) string {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
