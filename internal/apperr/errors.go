// Package apperr defines the tagged errors returned to callers of the RPC
// surface.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code is the tag a client sees on a failed call.
type Code string

const (
	CodeUnauthenticated   Code = "unauthenticated"
	CodeInvalidArgument   Code = "invalid-argument"
	CodeNotFound          Code = "not-found"
	CodePermissionDenied  Code = "permission-denied"
	CodeResourceExhausted Code = "resource-exhausted"
	CodeInternal          Code = "internal"
)

// Status is the upper-case form of the code used in the error envelope.
func (c Code) Status() string {
	switch c {
	case CodeUnauthenticated:
		return "UNAUTHENTICATED"
	case CodeInvalidArgument:
		return "INVALID_ARGUMENT"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodePermissionDenied:
		return "PERMISSION_DENIED"
	case CodeResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps a code to the status written on the wire.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a tagged error with an optional wrapped cause.
type Error struct {
	Code      Code
	Message   string
	Timestamp time.Time
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClientMessage is the text sent to the caller. Internal errors carry the
// cause so failures can be diagnosed from the client.
func (e *Error) ClientMessage() string {
	if e.Code == CodeInternal && e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func New(code Code, message string, err error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

func Unauthenticated(message string) *Error {
	return New(CodeUnauthenticated, message, nil)
}

func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message, nil)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message, nil)
}

func PermissionDenied(message string) *Error {
	return New(CodePermissionDenied, message, nil)
}

func ResourceExhausted(message string, err error) *Error {
	return New(CodeResourceExhausted, message, err)
}

func Internal(message string, err error) *Error {
	return New(CodeInternal, message, err)
}

// As extracts the tagged error from err, wrapping untagged errors as
// internal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error", err)
}

// CodeOf returns the tag of err; untagged errors are internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return As(err).Code
}
