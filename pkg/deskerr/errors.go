// Package deskerr holds the error taxonomy shared by the ingestion pipeline,
// the status tracker and the query engine.
package deskerr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation          Code = "validation"
	CodeStorage             Code = "storage"
	CodeRecord              Code = "record"
	CodeTransportConnect    Code = "transport_connect"
	CodeTransport           Code = "transport"
	CodeNotReady            Code = "not_ready"
	CodeProcessingFailed    Code = "processing_failed"
	CodeNoDocument          Code = "no_document"
	CodeInputTooShort       Code = "input_too_short"
	CodeInputTooLong        Code = "input_too_long"
	CodeOutOfScope          Code = "out_of_scope"
	CodeUnparseableResponse Code = "unparseable_response"
	CodeRemoteFailure       Code = "remote_failure"
	CodeInvalidTransition   Code = "invalid_transition"
	CodeNotFound            Code = "not_found"
	CodeForbidden           Code = "forbidden"
)

// Sentinels for errors.Is. Two errors match when their codes match.
var (
	ErrValidation          = &Error{Code: CodeValidation}
	ErrStorage             = &Error{Code: CodeStorage}
	ErrRecord              = &Error{Code: CodeRecord}
	ErrTransportConnect    = &Error{Code: CodeTransportConnect}
	ErrTransport           = &Error{Code: CodeTransport}
	ErrNotReady            = &Error{Code: CodeNotReady}
	ErrProcessingFailed    = &Error{Code: CodeProcessingFailed}
	ErrNoDocument          = &Error{Code: CodeNoDocument}
	ErrInputTooShort       = &Error{Code: CodeInputTooShort}
	ErrInputTooLong        = &Error{Code: CodeInputTooLong}
	ErrOutOfScope          = &Error{Code: CodeOutOfScope}
	ErrUnparseableResponse = &Error{Code: CodeUnparseableResponse}
	ErrRemoteFailure       = &Error{Code: CodeRemoteFailure}
	ErrInvalidTransition   = &Error{Code: CodeInvalidTransition}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrForbidden           = &Error{Code: CodeForbidden}
)

// Error is a user-presentable failure. Message is safe to show to the
// document owner; Err keeps the underlying cause for logs.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in the chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the user-facing message of the first *Error in the
// chain, falling back to fallback.
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
