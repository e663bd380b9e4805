// Package errors defines the sentinel errors shared across the service and
// maps them onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrExtractionFailed = errors.New("text extraction failed")
	ErrEmptyContent     = errors.New("document content is empty")
	ErrStorePoisoned    = errors.New("document store poisoned by an earlier fault")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

// AppError pins a client-facing message and status to a sentinel.
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

// HTTPStatusCode maps err to a status. An AppError's own status wins over
// the sentinel table.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrExtractionFailed), errors.Is(err, ErrEmptyContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ClientMessage returns text safe to show a caller. AppError messages and
// 4xx sentinels are passed through; anything else becomes fallback so
// internal detail stays in the logs.
func ClientMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if code := HTTPStatusCode(err); code >= 400 && code < 500 {
		for _, sentinel := range []error{ErrDocumentNotFound, ErrInvalidInput, ErrExtractionFailed, ErrEmptyContent} {
			if errors.Is(err, sentinel) {
				return sentinel.Error()
			}
		}
	}
	return fallback
}
