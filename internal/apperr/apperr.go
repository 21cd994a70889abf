// Package apperr classifies failures so the transport layer can pick a status
// without the core packages knowing about HTTP.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrUpstream      = errors.New("upstream failure")
	ErrConfiguration = errors.New("configuration error")
	ErrExtraction    = errors.New("audio extraction failed")
)

// Error carries a human-readable reason next to its classification marker.
// Message is what clients see; Unwrap exposes both the marker and the cause.
type Error struct {
	Marker  error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	parts := make([]string, 0, 3)
	if op := strings.TrimSpace(e.Op); op != "" {
		parts = append(parts, op)
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return e.Marker.Error()
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap tags err with marker. A nil marker is treated as an upstream failure.
func Wrap(marker error, op, message string, err error) error {
	if marker == nil {
		marker = ErrUpstream
	}
	return &Error{Marker: marker, Op: op, Message: message, Err: err}
}

// Validation builds a client-input error with a formatted reason.
func Validation(format string, args ...any) error {
	return &Error{Marker: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found error with a formatted reason.
func NotFound(format string, args ...any) error {
	return &Error{Marker: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// Message returns the client-facing reason for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		msg := strings.TrimSpace(appErr.Message)
		if msg == "" {
			return appErr.Error()
		}
		if appErr.Err != nil && !errors.Is(appErr.Marker, ErrValidation) && !errors.Is(appErr.Marker, ErrNotFound) {
			return fmt.Sprintf("%s: %v", msg, appErr.Err)
		}
		return msg
	}
	return err.Error()
}

// HTTPStatus maps an error to the status the outermost handler should send.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrExtraction):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the short machine-readable code used in JSON error bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ERR_VALIDATION"
	case errors.Is(err, ErrExtraction):
		return "ERR_EXTRACTION"
	case errors.Is(err, ErrNotFound):
		return "ERR_NOT_FOUND"
	case errors.Is(err, ErrUpstream):
		return "ERR_UPSTREAM"
	case errors.Is(err, ErrConfiguration):
		return "ERR_CONFIGURATION"
	default:
		return "ERR_INTERNAL"
	}
}
