// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrorConverter turns raw Go errors into *Error values.
type ErrorConverter struct {
	converters map[string]func(error) *Error
}

func NewErrorConverter() *ErrorConverter {
	return &ErrorConverter{
		converters: make(map[string]func(error) *Error),
	}
}

// RegisterConverter registers a converter keyed by the dynamic type name of
// the error, e.g. "*url.Error".
func (ec *ErrorConverter) RegisterConverter(errorType string, converter func(error) *Error) {
	ec.converters[errorType] = converter
}

// Convert returns err unchanged when it already is an *Error, otherwise it
// wraps err in a transport error with the best matching code.
func (ec *ErrorConverter) Convert(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	errorType := fmt.Sprintf("%T", err)
	if converter, exists := ec.converters[errorType]; exists {
		return converter(err)
	}

	return ec.convertBuiltin(err)
}

func (ec *ErrorConverter) convertBuiltin(err error) *Error {
	switch {
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeTransportCanceled, CategoryTransport, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTransportTimeout, CategoryTransport, "request timeout")
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return Wrap(err, ErrCodeTransportReset, CategoryTransport, "connection closed by peer")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Wrap(err, ErrCodeTransportTimeout, CategoryTransport, "network timeout")
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch {
		case errors.Is(errno, syscall.ECONNREFUSED):
			return Wrap(err, ErrCodeTransportRefused, CategoryTransport, "connection refused")
		case errors.Is(errno, syscall.ECONNRESET), errors.Is(errno, syscall.EPIPE):
			return Wrap(err, ErrCodeTransportReset, CategoryTransport, "connection reset")
		case errors.Is(errno, syscall.ETIMEDOUT):
			return Wrap(err, ErrCodeTransportTimeout, CategoryTransport, "connection timeout")
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case contains(msg, "timeout", "timed out"):
		return Wrap(err, ErrCodeTransportTimeout, CategoryTransport, "network timeout")
	case contains(msg, "connection refused"):
		return Wrap(err, ErrCodeTransportRefused, CategoryTransport, "connection refused")
	case contains(msg, "connection reset", "broken pipe"):
		return Wrap(err, ErrCodeTransportReset, CategoryTransport, "connection reset")
	}

	return Wrap(err, ErrCodeTransportUnknown, CategoryTransport, "transport failure")
}

func contains(s string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

var globalConverter = NewErrorConverter()

// Convert 全局错误转换函数
func Convert(err error) *Error {
	return globalConverter.Convert(err)
}

// RegisterConverter 注册全局错误转换器
func RegisterConverter(errorType string, converter func(error) *Error) {
	globalConverter.RegisterConverter(errorType, converter)
}

func SystemError(code ErrorCode, message string) *Error {
	return New(code, CategorySystem, message)
}

func TransportError(code ErrorCode, message string) *Error {
	return New(code, CategoryTransport, message)
}

func TransportErrorf(code ErrorCode, format string, args ...any) *Error {
	return Newf(code, CategoryTransport, format, args...)
}

func APIError(code ErrorCode, message string) *Error {
	return New(code, CategoryAPI, message)
}

func APIErrorf(code ErrorCode, format string, args ...any) *Error {
	return Newf(code, CategoryAPI, format, args...)
}

func HandshakeError(code ErrorCode, message string) *Error {
	return New(code, CategoryHandshake, message)
}

func HandshakeErrorf(code ErrorCode, format string, args ...any) *Error {
	return Newf(code, CategoryHandshake, format, args...)
}

func ConnectionError(code ErrorCode, message string) *Error {
	return New(code, CategoryConnection, message)
}

func ConnectionErrorf(code ErrorCode, format string, args ...any) *Error {
	return Newf(code, CategoryConnection, format, args...)
}

func ConfigError(code ErrorCode, message string) *Error {
	return New(code, CategoryConfig, message)
}

func ConfigErrorf(code ErrorCode, format string, args ...any) *Error {
	return Newf(code, CategoryConfig, format, args...)
}

func ValidationError(code ErrorCode, message string) *Error {
	return New(code, CategoryValidation, message)
}

func ValidationErrorf(code ErrorCode, format string, args ...any) *Error {
	return Newf(code, CategoryValidation, format, args...)
}
