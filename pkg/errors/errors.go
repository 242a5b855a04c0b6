// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode error code
type ErrorCode int

// ErrorCategory error category
type ErrorCategory string

const (
	CategorySystem     ErrorCategory = "system"
	CategoryTransport  ErrorCategory = "transport"
	CategoryAPI        ErrorCategory = "api"
	CategoryHandshake  ErrorCategory = "handshake"
	CategoryConnection ErrorCategory = "connection"
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
)

// system error code (1000-1999)
const (
	ErrCodeSystemUnknown  ErrorCode = 1000
	ErrCodeSystemPanic    ErrorCode = 1001
	ErrCodeSystemShutdown ErrorCode = 1002
)

// transport error code (2000-2999)
const (
	ErrCodeTransportUnknown     ErrorCode = 2000
	ErrCodeTransportTimeout     ErrorCode = 2001
	ErrCodeTransportRefused     ErrorCode = 2002
	ErrCodeTransportReset       ErrorCode = 2003
	ErrCodeTransportCanceled    ErrorCode = 2004
	ErrCodeTransportBadResponse ErrorCode = 2005
)

// api error code (3000-3999)
const (
	ErrCodeAPIUnknown     ErrorCode = 3000
	ErrCodeAPIRejected    ErrorCode = 3001
	ErrCodeAPIRateLimited ErrorCode = 3002
	ErrCodeAPINotFound    ErrorCode = 3003
	ErrCodeAPIServerError ErrorCode = 3004
)

// handshake error code (4000-4999)
const (
	ErrCodeHandshakeUnknown    ErrorCode = 4000
	ErrCodeHandshakeParse      ErrorCode = 4001
	ErrCodeHandshakeNoGateway  ErrorCode = 4002
	ErrCodeHandshakeNoHello    ErrorCode = 4003
	ErrCodeHandshakeAuthFailed ErrorCode = 4004
)

// connection error code (5000-5999)
const (
	ErrCodeConnectionUnknown   ErrorCode = 5000
	ErrCodeConnectionDial      ErrorCode = 5001
	ErrCodeConnectionLost      ErrorCode = 5002
	ErrCodeConnectionMalformed ErrorCode = 5003
	ErrCodeConnectionClosed    ErrorCode = 5004
	ErrCodeConnectionWrite     ErrorCode = 5005
)

// config error code (6000-6999)
const (
	ErrCodeConfigUnknown    ErrorCode = 6000
	ErrCodeConfigNotFound   ErrorCode = 6001
	ErrCodeConfigInvalid    ErrorCode = 6002
	ErrCodeConfigParseError ErrorCode = 6003
)

// validation error code (7000-7999)
const (
	ErrCodeValidationUnknown  ErrorCode = 7000
	ErrCodeValidationRequired ErrorCode = 7001
	ErrCodeValidationFormat   ErrorCode = 7002
)

// Error is the error type returned by every fallible operation of the client.
type Error struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Category  ErrorCategory  `json:"category"`
	Timestamp time.Time      `json:"timestamp"`
	Cause     error          `json:"cause,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Error implements error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%d] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%d] %s", e.Category, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithContext with context
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause with cause
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// New create error
func New(code ErrorCode, category ErrorCategory, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  category,
		Timestamp: time.Now(),
	}
}

// Newf create error with format message
func Newf(code ErrorCode, category ErrorCategory, format string, args ...any) *Error {
	return New(code, category, fmt.Sprintf(format, args...))
}

// Wrap existing error with code, category and message
func Wrap(err error, code ErrorCode, category ErrorCategory, message string) *Error {
	e := New(code, category, message)
	e.Cause = err
	return e
}

// Wrapf wrap existing error with code, category and format message
func Wrapf(err error, code ErrorCode, category ErrorCategory, format string, args ...any) *Error {
	return Wrap(err, code, category, fmt.Sprintf(format, args...))
}

// Is and As mirror the standard library so callers need one errors import.
func Is(err, target error) bool { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }

// CategoryOf returns the category of the first *Error in err's chain, or
// CategorySystem when there is none.
func CategoryOf(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategorySystem
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var e *Error
	return errors.As(err, &e) && e.Category == category
}

func IsTransport(err error) bool  { return IsCategory(err, CategoryTransport) }
func IsAPI(err error) bool        { return IsCategory(err, CategoryAPI) }
func IsHandshake(err error) bool  { return IsCategory(err, CategoryHandshake) }
func IsConnection(err error) bool { return IsCategory(err, CategoryConnection) }

// GetErrorMessage get error message by error code
func GetErrorMessage(code ErrorCode) string {
	switch code {
	case ErrCodeSystemUnknown:
		return "Unknown system error"
	case ErrCodeSystemPanic:
		return "Recovered panic"
	case ErrCodeSystemShutdown:
		return "Client is shutting down"

	case ErrCodeTransportUnknown:
		return "Unknown transport error"
	case ErrCodeTransportTimeout:
		return "Request timeout"
	case ErrCodeTransportRefused:
		return "Connection refused"
	case ErrCodeTransportReset:
		return "Connection reset"
	case ErrCodeTransportCanceled:
		return "Request canceled"
	case ErrCodeTransportBadResponse:
		return "Unreadable response"

	case ErrCodeAPIUnknown:
		return "Unknown api error"
	case ErrCodeAPIRejected:
		return "Request rejected"
	case ErrCodeAPIRateLimited:
		return "Rate limited"
	case ErrCodeAPINotFound:
		return "Not found"
	case ErrCodeAPIServerError:
		return "Server error"

	case ErrCodeHandshakeUnknown:
		return "Unknown handshake error"
	case ErrCodeHandshakeParse:
		return "Malformed handshake response"
	case ErrCodeHandshakeNoGateway:
		return "Instance has no gateway"
	case ErrCodeHandshakeNoHello:
		return "Gateway did not say hello"
	case ErrCodeHandshakeAuthFailed:
		return "Gateway authentication failed"

	case ErrCodeConnectionUnknown:
		return "Unknown connection error"
	case ErrCodeConnectionDial:
		return "Gateway dial failed"
	case ErrCodeConnectionLost:
		return "Gateway connection lost"
	case ErrCodeConnectionMalformed:
		return "Malformed gateway frame"
	case ErrCodeConnectionClosed:
		return "Gateway connection closed"
	case ErrCodeConnectionWrite:
		return "Gateway write failed"

	case ErrCodeConfigUnknown:
		return "Unknown config error"
	case ErrCodeConfigNotFound:
		return "Config not found"
	case ErrCodeConfigInvalid:
		return "Invalid config"
	case ErrCodeConfigParseError:
		return "Config parse error"

	case ErrCodeValidationUnknown:
		return "Unknown validation error"
	case ErrCodeValidationRequired:
		return "Required field missing"
	case ErrCodeValidationFormat:
		return "Invalid format"

	default:
		return "Unknown error"
	}
}

// GetErrorCategory returns the error category for the given error code.
func GetErrorCategory(code ErrorCode) ErrorCategory {
	switch {
	case code >= 2000 && code < 3000:
		return CategoryTransport
	case code >= 3000 && code < 4000:
		return CategoryAPI
	case code >= 4000 && code < 5000:
		return CategoryHandshake
	case code >= 5000 && code < 6000:
		return CategoryConnection
	case code >= 6000 && code < 7000:
		return CategoryConfig
	case code >= 7000 && code < 8000:
		return CategoryValidation
	default:
		return CategorySystem
	}
}
