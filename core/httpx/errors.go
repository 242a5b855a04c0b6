// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cocowh/eludris/pkg/errors"
	"github.com/tidwall/gjson"
)

const defaultRetryAfter = time.Second

// APIError is a non-success response from the instance. It is the Cause of
// the *errors.Error returned by the client, so errors.As reaches it.
type APIError struct {
	StatusCode int
	Message    string
	// RetryAfter is set for rate limited responses.
	RetryAfter time.Duration
	Payload    json.RawMessage
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("eludris: status %d", e.StatusCode)
	}
	return fmt.Sprintf("eludris: status %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	if gjson.ValidBytes(body) {
		e.Payload = json.RawMessage(body)
		e.Message = gjson.GetBytes(body, "message").String()
	} else if len(body) > 0 {
		e.Message = string(body)
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	if status == http.StatusTooManyRequests {
		ms := gjson.GetBytes(body, "data.retry_after")
		if !ms.Exists() {
			ms = gjson.GetBytes(body, "retry_after")
		}
		e.RetryAfter = defaultRetryAfter
		if ms.Exists() && ms.Int() > 0 {
			e.RetryAfter = time.Duration(ms.Int()) * time.Millisecond
		}
	}
	return e
}

func (e *APIError) code() errors.ErrorCode {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return errors.ErrCodeAPIRateLimited
	case e.StatusCode == http.StatusNotFound:
		return errors.ErrCodeAPINotFound
	case e.StatusCode >= 500:
		return errors.ErrCodeAPIServerError
	default:
		return errors.ErrCodeAPIRejected
	}
}

func (e *APIError) wrap(endpoint string) *errors.Error {
	return errors.Wrap(e, e.code(), errors.CategoryAPI, e.Message).
		WithContext("endpoint", endpoint).
		WithContext("status", e.StatusCode)
}
