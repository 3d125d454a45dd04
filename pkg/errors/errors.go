// Package errors carries the ledger's typed error codes and the HTTP contract
// each code maps to. Services return *Error; the responses package renders it.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeInsufficientStock   Code = "INSUFFICIENT_STOCK"
	CodeInvariantViolation  Code = "INVARIANT_VIOLATION"
	CodeConcurrencyConflict Code = "CONCURRENCY_CONFLICT"
	CodeIdempotency         Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeDependency          Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	retry   = true
	noRetry = false
	details = true
	opaque  = false
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:          {http.StatusBadRequest, noRetry, "validation failed", details},
	CodeNotFound:            {http.StatusNotFound, noRetry, "resource not found", opaque},
	CodeConflict:            {http.StatusConflict, noRetry, "conflict detected", opaque},
	CodeInsufficientStock:   {http.StatusConflict, noRetry, "insufficient stock", details},
	CodeInvariantViolation:  {http.StatusUnprocessableEntity, noRetry, "operation would violate stock invariants", details},
	CodeConcurrencyConflict: {http.StatusConflict, retry, "record is being modified concurrently", details},
	CodeIdempotency:         {http.StatusConflict, noRetry, "idempotency key reused", details},
	CodeInternal:            {http.StatusInternalServerError, retry, "internal server error", opaque},
	CodeDependency:          {http.StatusServiceUnavailable, retry, "dependency unavailable", details},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches structured context and returns the receiver.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Retryable() bool {
	return MetadataFor(e.Code()).Retryable
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error by code, so sentinels built with New work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	var other *Error
	if e == nil || !stdErrors.As(target, &other) || other == nil {
		return false
	}
	return e.code == other.code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// HTTPStatus maps any error to a status; untyped errors are internal.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return MetadataFor(As(err).Code()).HTTPStatus
}
