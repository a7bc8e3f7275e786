package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotSupported       = errors.New("operation not supported for this index type")
	ErrOutOfRange         = errors.New("record id out of range")
	ErrUnsupportedScoring = errors.New("unsupported scoring method")
	ErrAlreadyBuilt       = errors.New("index already built")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCatalogUnavailable = errors.New("catalog source unavailable")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
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

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, ErrNotSupported):
		return http.StatusNotImplemented
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedScoring):
		return http.StatusBadRequest
	case errors.Is(err, ErrCatalogUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
