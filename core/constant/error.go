// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package constant

const (
	ErrMessagePanic           = "panic occurred"
	ErrMessageConnectFailed   = "connect failed"
	ErrMessageHeartbeatFailed = "heartbeat failed"
	ErrMessageNameRequired    = "a name is required to send messages"
	ErrMessageNoGateway       = "instance does not advertise a pandemonium url"
	ErrMessageNoHello         = "gateway did not send HELLO"
)
