// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ws

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/cocowh/eludris/core/iface"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

type conn struct {
	id           string
	rawConn      *websocket.Conn
	writeMu      sync.Mutex
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func NewConnection(wsConn *websocket.Conn, writeTimeout time.Duration) iface.FrameConn {
	c := &conn{
		id:           uuid.NewString(),
		rawConn:      wsConn,
		writeTimeout: writeTimeout,
	}
	wsConn.SetPingHandler(func(appData string) error {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return wsConn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(closeGracePeriod))
	})
	return c
}

func (c *conn) ID() string {
	return c.id
}

// ReadFrame returns io.EOF when the peer closed the session with a normal
// close code.
func (c *conn) ReadFrame() ([]byte, error) {
	for {
		msgType, data, err := c.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, io.EOF
			}
			return nil, errors.ConnectionError(errors.ErrCodeConnectionLost, "gateway read failed").WithCause(err)
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *conn) WriteFrame(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Time{}
	if c.writeTimeout > 0 {
		deadline = time.Now().Add(c.writeTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	_ = c.rawConn.SetWriteDeadline(deadline)

	if err := c.rawConn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.ConnectionError(errors.ErrCodeConnectionWrite, "gateway write failed").WithCause(err)
	}
	return nil
}

// Close sends a normal close frame and releases the socket.
func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.rawConn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		c.writeMu.Unlock()
		c.closeErr = c.rawConn.Close()
	})
	return c.closeErr
}
