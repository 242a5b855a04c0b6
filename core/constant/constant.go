// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package constant

import "time"

const (
	// DefaultRestURL is the public instance used when no URL is configured.
	DefaultRestURL = "https://eludris.tooty.xyz"
	// DefaultGatewayURL is the public instance's pandemonium endpoint.
	DefaultGatewayURL = "wss://eludris.tooty.xyz/ws/"

	MessagesPath = "/messages"

	UserAgent = "eludris-go (https://github.com/cocowh/eludris, 0.3.0)"
	Version   = "0.3.0"
)

const (
	DefaultHTTPTimeout         = 30 * time.Second
	DefaultHandshakeTimeout    = 10 * time.Second
	DefaultWriteTimeout        = 5 * time.Second
	DefaultHeartbeatInterval   = 45 * time.Second
	DefaultMaxRateLimitRetries = 3
	DefaultEventBuffer         = 64
)

// Gateway payload ops.
const (
	OpHello          = "HELLO"
	OpPing           = "PING"
	OpPong           = "PONG"
	OpRateLimit      = "RATE_LIMIT"
	OpAuthenticate   = "AUTHENTICATE"
	OpAuthenticated  = "AUTHENTICATED"
	OpMessageCreate  = "MESSAGE_CREATE"
	OpUserUpdate     = "USER_UPDATE"
	OpPresenceUpdate = "PRESENCE_UPDATE"
)
