package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code for model invocations.
type ErrorCode string

// Invocation error codes
const (
	ErrConfig       ErrorCode = "CONFIG"                // unknown model/provider, missing strategy, duplicate registration
	ErrMissingParam ErrorCode = "MISSING_PARAM"         // required extra param absent
	ErrSigning      ErrorCode = "SIGNING"               // cryptographic failure while building headers
	ErrURLParse     ErrorCode = "URL_PARSE"             // malformed endpoint / requestUrl
	ErrNetwork      ErrorCode = "NETWORK"               // connect/read failure or non-2xx status
	ErrParse        ErrorCode = "PARSE"                 // malformed or error-coded response body
	ErrTimeout      ErrorCode = "TIMEOUT"               // deadline elapsed before completion
	ErrConnect      ErrorCode = "CONNECT"               // websocket connection could not be opened
	ErrUnsupported  ErrorCode = "UNSUPPORTED_OPERATION" // operation not offered by this invoker
)

// Error represents a structured invocation error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Body       string    `json:"body,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	ModelKey   string    `json:"model_key,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.HTTPStatus != 0 {
		msg += fmt.Sprintf(" (status %d)", e.HTTPStatus)
	}
	if e.Provider != "" || e.ModelKey != "" {
		msg += fmt.Sprintf(" provider=%q model=%q", e.Provider, e.ModelKey)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithBody attaches the upstream response body.
func (e *Error) WithBody(body string) *Error {
	e.Body = body
	return e
}

// WithRetryable marks the error as retryable. The core never retries on its own;
// the flag is a hint for callers.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithModelKey sets the model key.
func (e *Error) WithModelKey(modelKey string) *Error {
	e.ModelKey = modelKey
	return e
}

// AsError extracts an *Error from the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode reports whether any error in the chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	return ok && e.Retryable
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// Tag returns err as an *Error carrying provider and modelKey. Errors that are not
// already structured are wrapped under fallback. Existing tags are left untouched.
func Tag(err error, fallback ErrorCode, provider, modelKey string) *Error {
	if err == nil {
		return nil
	}
	e, ok := AsError(err)
	if !ok {
		e = NewError(fallback, err.Error()).WithCause(err)
	}
	if e.Provider == "" {
		e.Provider = provider
	}
	if e.ModelKey == "" {
		e.ModelKey = modelKey
	}
	return e
}
