package files

import (
	"fmt"
	"net/http"

	errors "github.com/Laisky/errors/v2"
)

// ErrorCode identifies a machine-stable file error code.
type ErrorCode string

const (
	ErrCodeInvalidRoot          ErrorCode = "INVALID_ROOT"
	ErrCodePathEscape           ErrorCode = "PATH_ESCAPE"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeUnsupportedExtension ErrorCode = "UNSUPPORTED_EXTENSION"
	ErrCodeFileTooLarge         ErrorCode = "FILE_TOO_LARGE"
	ErrCodeEncodingDetection    ErrorCode = "ENCODING_DETECTION_FAILURE"
	ErrCodeInvalidQuery         ErrorCode = "INVALID_QUERY"
	ErrCodeInternal             ErrorCode = "INTERNAL"
)

// Error captures a typed file error.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error returns the error message.
func (e *Error) Error() string {
	if e == nil {
		return "file error: <nil>"
	}
	if e.Message == "" {
		return fmt.Sprintf("file error: %s", e.Code)
	}
	return e.Message
}

// NewError constructs a typed file error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// AsError extracts a typed file error from the error chain.
func AsError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// IsCode reports whether the error chain contains the given code.
func IsCode(err error, code ErrorCode) bool {
	if typed, ok := AsError(err); ok {
		return typed.Code == code
	}
	return false
}

// HTTPStatus maps an error code to the status a node answers with.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeInvalidRoot, ErrCodeInvalidQuery:
		return http.StatusBadRequest
	case ErrCodePathEscape:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnsupportedExtension:
		return http.StatusUnsupportedMediaType
	case ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
