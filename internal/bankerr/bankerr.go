// Package bankerr defines the stable error codes shared by the document
// store and the knowledge graph engine.
package bankerr

import (
	"errors"
	"fmt"
)

// Code is a stable, caller-visible error discriminator.
type Code string

const (
	NotInitialized   Code = "NOT_INITIALIZED"
	MarkerMismatch   Code = "MARKER_MISMATCH"
	EntityNotFound   Code = "ENTITY_NOT_FOUND"
	RelationNotFound Code = "RELATION_NOT_FOUND"
	InvalidInput     Code = "INVALID_INPUT"
	IOError          Code = "IO_ERROR"
	ETagConflict     Code = "ETAG_CONFLICT"
	ValidationError  Code = "VALIDATION_ERROR"
	FileNotFound     Code = "FILE_NOT_FOUND"
	NotFound         Code = "NOT_FOUND"
)

// Error is the error type every core operation returns on failure. The code
// is stable across releases; the message is for humans.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, bankerr.New(code, "")) match on code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf extracts the stable code from err, or "" if err isn't a *Error.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}
