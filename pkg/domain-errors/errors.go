// Package dErrors provides coded domain errors. Services create or wrap
// errors with a Code; transport maps codes to HTTP statuses; callers branch
// with HasCode instead of string matching.
//
// Rejections must tell the caller which precondition failed, like the
// missing fiscal fields or the remaining quota slots. That detail travels
// in Fields so handlers can render it without parsing messages.
package dErrors

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeNotRegistered        Code = "not_registered"
	CodeIncompleteFiscalData Code = "incomplete_fiscal_data"
	CodeQuotaExceeded        Code = "quota_exceeded"
	CodeInvalidFile          Code = "invalid_file"
	CodeFileTooLarge         Code = "file_too_large"
	CodeInvalidState         Code = "invalid_state"
	CodeForbidden            Code = "forbidden"
	CodeConflict             Code = "conflict"
	CodeNotFound             Code = "not_found"
	CodeValidation           Code = "validation"
	CodeBadRequest           Code = "bad_request"
	CodeNotificationFailed   Code = "notification_failed"
	CodeArtifactFailed       Code = "artifact_failed"
	CodeInternal             Code = "internal"
)

// Error carries a machine-readable code, a human message, optional
// structured detail, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// WithField attaches a structured detail value and returns the same error
// for chaining.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any, 1)
	}
	e.Fields[key] = value
	return e
}

// HasCode reports whether err, or anything it wraps, is a domain error with
// the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal when err carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf returns the structured detail of err, or nil.
func FieldsOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}
