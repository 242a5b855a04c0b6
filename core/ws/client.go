// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/cocowh/eludris/core/config"
	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/core/iface"
	"github.com/cocowh/eludris/core/observability"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/cocowh/eludris/pkg/logger"
)

// GatewayClient opens event streams against one pandemonium endpoint. It
// owns at most one live session at a time.
type GatewayClient struct {
	mu         sync.Mutex
	gatewayURL string
	token      string
	header     http.Header
	opts       *ClientOptions
	dialer     iface.Dialer
	current    *Events
}

type ClientOptions struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Proxy            string
	EventBuffer      int
	// Dialer replaces the gorilla dialer, mostly for tests.
	Dialer  iface.Dialer
	Metrics *observability.Metrics
}

func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		HandshakeTimeout: constant.DefaultHandshakeTimeout,
		WriteTimeout:     constant.DefaultWriteTimeout,
		EventBuffer:      constant.DefaultEventBuffer,
	}
}

// ClientOptionsFromConfig reads the gateway section of cm.
func ClientOptionsFromConfig(cm *config.ConfigManager) *ClientOptions {
	gc := cm.GetGatewayConfig()
	opts := NewClientOptions()
	if gc.HandshakeTimeout > 0 {
		opts.HandshakeTimeout = gc.HandshakeTimeout
	}
	if gc.WriteTimeout > 0 {
		opts.WriteTimeout = gc.WriteTimeout
	}
	if gc.EventBuffer > 0 {
		opts.EventBuffer = gc.EventBuffer
	}
	opts.Proxy = gc.Proxy
	return opts
}

// NewClient creates a gateway client for the default instance. token may be
// empty, in which case the session is never authenticated.
func NewClient(token string, opts *ClientOptions) *GatewayClient {
	if opts == nil {
		opts = NewClientOptions()
	}
	return &GatewayClient{
		gatewayURL: constant.DefaultGatewayURL,
		token:      token,
		header:     make(http.Header),
		opts:       opts,
		dialer:     opts.Dialer,
	}
}

// GatewayURL changes the endpoint used by later GetEvents calls.
func (c *GatewayClient) GatewayURL(url string) *GatewayClient {
	c.mu.Lock()
	c.gatewayURL = url
	c.mu.Unlock()
	return c
}

// SetHeader adds a header sent with the websocket upgrade request.
func (c *GatewayClient) SetHeader(key, value string) {
	c.mu.Lock()
	c.header.Set(key, value)
	c.mu.Unlock()
}

func (c *GatewayClient) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gatewayURL
}

// GetEvents dials a fresh session, waits for HELLO, authenticates when a
// token is set and returns the session's event stream. A session opened by
// an earlier call is closed first.
func (c *GatewayClient) GetEvents(ctx context.Context) (*Events, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		logger.Debugf("closing previous gateway session %s", c.current.ID())
		_ = c.current.Close()
		c.current = nil
	}

	if c.dialer == nil {
		d, err := NewDialer(c.opts)
		if err != nil {
			return nil, err
		}
		c.dialer = d
	}

	url, err := NormalizeURL(c.gatewayURL)
	if err != nil {
		return nil, errors.HandshakeError(errors.ErrCodeHandshakeParse, "invalid gateway url").
			WithCause(err).
			WithContext("url", c.gatewayURL)
	}

	logger.Debugf("Events connecting to %s", url)
	fc, err := c.dialer.DialContext(ctx, url, c.header.Clone())
	if err != nil {
		c.opts.Metrics.RecordConnection("error")
		return nil, errors.Convert(err)
	}
	c.opts.Metrics.RecordConnection("ok")

	events := newEvents(fc, c.token, c.opts)
	if err := events.start(ctx); err != nil {
		_ = events.Close()
		return nil, err
	}

	logger.Infof("gateway session %s connected to %s", fc.ID(), url)
	c.current = events
	return events, nil
}

// Close ends the current session, if any.
func (c *GatewayClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	err := c.current.Close()
	c.current = nil
	return err
}
