// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ws

import (
	"context"
	"encoding/json"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/core/iface"
	"github.com/cocowh/eludris/core/models"
	"github.com/cocowh/eludris/core/observability"
	"github.com/cocowh/eludris/core/utils"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/cocowh/eludris/pkg/logger"
	"github.com/tidwall/gjson"
)

// Events is the event stream of one gateway session. It is meant to be
// consumed by a single goroutine; Close may be called from any goroutine.
type Events struct {
	conn    iface.FrameConn
	token   string
	opts    *ClientOptions
	metrics *observability.Metrics

	frames     chan []byte
	done       chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once
	closeErr   error
	wg         sync.WaitGroup

	heartbeat time.Duration

	mu      sync.Mutex
	termErr error
	data    GatewayData
}

func newEvents(fc iface.FrameConn, token string, opts *ClientOptions) *Events {
	size := opts.EventBuffer
	if size <= 0 {
		size = constant.DefaultEventBuffer
	}
	return &Events{
		conn:       fc,
		token:      token,
		opts:       opts,
		metrics:    opts.Metrics,
		frames:     make(chan []byte, size),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
		data:       GatewayData{Users: make(map[uint64]models.User)},
	}
}

func (e *Events) ID() string {
	return e.conn.ID()
}

// HeartbeatInterval is the ping interval announced by the server's HELLO.
func (e *Events) HeartbeatInterval() time.Duration {
	return e.heartbeat
}

func (e *Events) start(ctx context.Context) error {
	e.wg.Add(1)
	go e.readLoop()

	interval, err := e.waitHello(ctx)
	if err != nil {
		return err
	}
	e.heartbeat = interval

	if e.token != "" {
		if err := e.send(ctx, constant.OpAuthenticate, e.token); err != nil {
			return errors.HandshakeError(errors.ErrCodeHandshakeAuthFailed, "failed to authenticate").WithCause(err)
		}
	}

	e.wg.Add(1)
	go e.pingLoop(interval)
	return nil
}

func (e *Events) waitHello(ctx context.Context) (time.Duration, error) {
	if e.opts.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.HandshakeTimeout)
		defer cancel()
	}

	for {
		select {
		case <-ctx.Done():
			return 0, errors.HandshakeError(errors.ErrCodeHandshakeNoHello, constant.ErrMessageNoHello).WithCause(ctx.Err())
		case data, ok := <-e.frames:
			if !ok {
				return 0, errors.HandshakeError(errors.ErrCodeHandshakeNoHello, constant.ErrMessageNoHello).WithCause(e.terminalErr())
			}
			if gjson.GetBytes(data, "op").String() != constant.OpHello {
				logger.Debugf("skipping frame before HELLO: %s", data)
				continue
			}
			e.metrics.RecordEvent(constant.OpHello)

			var hello models.Hello
			if err := json.Unmarshal([]byte(gjson.GetBytes(data, "d").Raw), &hello); err != nil {
				return 0, errors.HandshakeError(errors.ErrCodeHandshakeParse, "malformed HELLO payload").WithCause(err)
			}
			interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
			if interval <= 0 {
				interval = constant.DefaultHeartbeatInterval
			}
			return interval, nil
		}
	}
}

func (e *Events) readLoop() {
	defer e.wg.Done()
	defer e.metrics.RecordDisconnect()
	defer close(e.readerDone)
	defer close(e.frames)
	defer utils.PanicHandler("gateway reader", func(err error) {
		e.setTerminal(errors.Wrap(err, errors.ErrCodeSystemPanic, errors.CategorySystem, constant.ErrMessagePanic))
	})

	for {
		data, err := e.conn.ReadFrame()
		if err != nil {
			e.setTerminal(err)
			_ = e.conn.Close()
			return
		}
		select {
		case e.frames <- data:
		case <-e.done:
			return
		}
	}
}

func (e *Events) pingLoop(interval time.Duration) {
	defer e.wg.Done()
	defer utils.PanicHandler("gateway pinger", nil)

	timer := time.NewTimer(rand.N(interval))
	defer timer.Stop()

	for {
		select {
		case <-e.done:
			return
		case <-e.readerDone:
			return
		case <-timer.C:
		}
		if err := e.send(context.Background(), constant.OpPing, nil); err != nil {
			logger.Debugf("%s: %v", constant.ErrMessageHeartbeatFailed, err)
			return
		}
		timer.Reset(interval)
	}
}

func (e *Events) send(ctx context.Context, op string, d any) error {
	payload := models.Payload{Op: op}
	if d != nil {
		raw, err := json.Marshal(d)
		if err != nil {
			return err
		}
		payload.Data = raw
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return e.conn.WriteFrame(ctx, data)
}

func (e *Events) setTerminal(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.termErr != nil {
		return
	}
	select {
	case <-e.done:
		e.termErr = io.EOF
		return
	default:
	}
	if err == io.EOF {
		logger.Debugf("gateway session %s closed by server", e.conn.ID())
		e.termErr = io.EOF
		return
	}
	if !errors.IsConnection(err) {
		err = errors.ConnectionError(errors.ErrCodeConnectionLost, "gateway connection lost").WithCause(err)
	}
	logger.Warnf("gateway session %s dropped: %v", e.conn.ID(), err)
	e.termErr = err
}

func (e *Events) terminalErr() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.termErr == nil {
		return io.EOF
	}
	return e.termErr
}

// Next blocks until the next event arrives. It returns io.EOF once the
// server closed the session normally or Close was called, and a connection
// error when the session dropped. A frame that cannot be decoded yields a
// connection error as well, but the stream stays usable.
func (e *Events) Next(ctx context.Context) (Event, error) {
	for {
		select {
		case <-e.done:
			return nil, io.EOF
		default:
		}

		select {
		case <-ctx.Done():
			return nil, errors.Convert(ctx.Err())
		case <-e.done:
			return nil, io.EOF
		case data, ok := <-e.frames:
			if !ok {
				return nil, e.terminalErr()
			}
			ev, err := e.decode(data)
			if err != nil {
				return nil, err
			}
			if ev != nil {
				return ev, nil
			}
		}
	}
}

func (e *Events) decode(data []byte) (Event, error) {
	op := gjson.GetBytes(data, "op")
	if !gjson.ValidBytes(data) || op.Type != gjson.String {
		return nil, e.malformed(data, "", nil)
	}
	e.metrics.RecordEvent(op.Str)
	d := []byte(gjson.GetBytes(data, "d").Raw)

	switch op.Str {
	case constant.OpHello, constant.OpPong:
		return nil, nil
	case constant.OpRateLimit:
		var rl models.RateLimit
		if err := json.Unmarshal(d, &rl); err != nil {
			return nil, e.malformed(data, op.Str, err)
		}
		logger.Warnf("gateway rate limited, wait %dms", rl.Wait)
		return nil, nil
	case constant.OpMessageCreate:
		var msg models.Message
		if err := json.Unmarshal(d, &msg); err != nil {
			return nil, e.malformed(data, op.Str, err)
		}
		return &MessageEvent{Message: msg}, nil
	case constant.OpAuthenticated:
		var auth models.Authenticated
		if err := json.Unmarshal(d, &auth); err != nil {
			return nil, e.malformed(data, op.Str, err)
		}
		e.mu.Lock()
		user := auth.User
		e.data.User = &user
		for _, u := range auth.Users {
			e.data.Users[u.ID] = u
		}
		e.data.Users[user.ID] = user
		e.mu.Unlock()
		return &AuthenticatedEvent{User: auth.User, Users: auth.Users}, nil
	case constant.OpUserUpdate:
		var user models.User
		if err := json.Unmarshal(d, &user); err != nil {
			return nil, e.malformed(data, op.Str, err)
		}
		ev := &UserUpdateEvent{User: user}
		e.mu.Lock()
		if old, ok := e.data.Users[user.ID]; ok {
			ev.Old = &old
		}
		e.data.Users[user.ID] = user
		if e.data.User != nil && e.data.User.ID == user.ID {
			u := user
			e.data.User = &u
		}
		e.mu.Unlock()
		return ev, nil
	case constant.OpPresenceUpdate:
		var pu models.PresenceUpdate
		if err := json.Unmarshal(d, &pu); err != nil {
			return nil, e.malformed(data, op.Str, err)
		}
		ev := &PresenceUpdateEvent{UserID: pu.UserID, Status: pu.Status}
		e.mu.Lock()
		if u, ok := e.data.Users[pu.UserID]; ok {
			old := u.Status
			ev.OldStatus = &old
			u.Status = pu.Status
			e.data.Users[pu.UserID] = u
		}
		if e.data.User != nil && e.data.User.ID == pu.UserID {
			e.data.User.Status = pu.Status
		}
		e.mu.Unlock()
		return ev, nil
	default:
		logger.Debugf("skipping unknown gateway op %s", op.Str)
		return nil, nil
	}
}

func (e *Events) malformed(data []byte, op string, cause error) error {
	e.metrics.RecordFrameError()
	logger.Debugf("malformed gateway frame: %s", data)
	err := errors.ConnectionError(errors.ErrCodeConnectionMalformed, "malformed gateway frame")
	if cause != nil {
		err.WithCause(cause)
	}
	if op != "" {
		err.WithContext("op", op)
	}
	return err
}

// Data returns a snapshot of the users the session has seen.
func (e *Events) Data() GatewayData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.clone()
}

// Close ends the session and waits for its goroutines. It is safe to call
// more than once.
func (e *Events) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		e.closeErr = e.conn.Close()
		e.wg.Wait()
	})
	return e.closeErr
}
