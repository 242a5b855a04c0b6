// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package common

import (
	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/pkg/errors"
)

// Sentinel errors. Compare with errors.Is; matching is by code.
var (
	ErrPanic          = errors.SystemError(errors.ErrCodeSystemPanic, constant.ErrMessagePanic)
	ErrNameRequired   = errors.ValidationError(errors.ErrCodeValidationRequired, constant.ErrMessageNameRequired)
	ErrNoGateway      = errors.HandshakeError(errors.ErrCodeHandshakeNoGateway, constant.ErrMessageNoGateway)
	ErrNoHello        = errors.HandshakeError(errors.ErrCodeHandshakeNoHello, constant.ErrMessageNoHello)
	ErrMalformedFrame = errors.ConnectionError(errors.ErrCodeConnectionMalformed, "malformed gateway frame")
	ErrConnectionLost = errors.ConnectionError(errors.ErrCodeConnectionLost, "gateway connection lost")
	ErrRateLimited    = errors.APIError(errors.ErrCodeAPIRateLimited, "rate limited")
)
