// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package iface

import (
	"context"
	"net/http"
)

// HTTPDoer is the HTTP transport used by the REST client. *http.Client
// satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// FrameConn is one live WebSocket session that exchanges whole text frames.
type FrameConn interface {
	ID() string
	// ReadFrame blocks until the next data frame arrives.
	ReadFrame() ([]byte, error)
	WriteFrame(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens gateway sessions.
type Dialer interface {
	DialContext(ctx context.Context, url string, header http.Header) (FrameConn, error)
}
