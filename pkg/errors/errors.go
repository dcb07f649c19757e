// Package errors carries the coded error type shared by the storefront
// services and the HTTP layer.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeNotFound      Code = "NOT_FOUND"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeCanceled      Code = "REQUEST_CANCELED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

// statusClientClosedRequest mirrors the nginx convention for aborted requests.
const statusClientClosedRequest = 499

// Metadata describes how a code surfaces to API clients. UserFacing codes
// carry messages written for the shopper (toasts, form errors) and are
// returned verbatim; the rest fall back to PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	UserFacing     bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {HTTPStatus: http.StatusBadRequest, UserFacing: true, PublicMessage: "validation failed", DetailsAllowed: true},
	CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, UserFacing: true, PublicMessage: "authentication required"},
	CodeNotFound:      {HTTPStatus: http.StatusNotFound, UserFacing: true, PublicMessage: "resource not found"},
	CodeStateConflict: {HTTPStatus: http.StatusConflict, UserFacing: true, PublicMessage: "cart changed during checkout", DetailsAllowed: true},
	CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, UserFacing: true, PublicMessage: "rate limit exceeded"},
	CodeCanceled:      {HTTPStatus: statusClientClosedRequest, Retryable: true, PublicMessage: "request canceled"},
	CodeInternal:      {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:    {HTTPStatus: http.StatusBadGateway, Retryable: true, UserFacing: true, PublicMessage: "catalog unavailable", DetailsAllowed: true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is a coded error with an optional cause and client-visible details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
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

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
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

// As returns the outermost *Error in err's chain.
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

// IsCode reports whether the outermost coded error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

// Public is the client-facing projection of an error.
type Public struct {
	Status  int
	Code    Code
	Message string
	Details any
}

// ToPublic maps any error onto what an API client may see. Uncoded errors
// become internal errors; their text never leaks.
func ToPublic(err error) Public {
	typed := As(err)
	if typed == nil {
		meta := MetadataFor(CodeInternal)
		return Public{Status: meta.HTTPStatus, Code: CodeInternal, Message: meta.PublicMessage}
	}

	meta := MetadataFor(typed.Code())
	out := Public{Status: meta.HTTPStatus, Code: typed.Code(), Message: meta.PublicMessage}
	if meta.UserFacing && typed.Message() != "" {
		out.Message = typed.Message()
	}
	if meta.DetailsAllowed {
		out.Details = typed.Details()
	}
	return out
}
