package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrIndexNotFound        = errors.New("index not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrInvalidQuery         = errors.New("invalid query")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnsupportedLanguage  = errors.New("unsupported language")
	ErrCorruptIndex         = errors.New("corrupt index")
	ErrInternal             = errors.New("internal error")
	ErrTimeout              = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Is and As are re-exported so callers importing this package under its
// default name can still reach the standard helpers.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrIndexNotFound),
		errors.Is(err, ErrConversationNotFound),
		errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidQuery),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnsupportedLanguage):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
