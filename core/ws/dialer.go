// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ws

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/core/iface"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// Dialer opens gateway sessions with gorilla/websocket.
type Dialer struct {
	dialer       *websocket.Dialer
	writeTimeout time.Duration
}

// NewDialer builds a dialer honouring opts.Proxy. socks5 proxies go through
// golang.org/x/net/proxy, http(s) proxies through the dialer's CONNECT
// support. Without a proxy the environment's HTTP proxy settings apply.
func NewDialer(opts *ClientOptions) (*Dialer, error) {
	if opts == nil {
		opts = NewClientOptions()
	}

	d := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
		NetDialContext: (&net.Dialer{
			Timeout:   opts.HandshakeTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	proxyURL := strings.TrimSpace(opts.Proxy)
	if proxyURL == "" {
		return &Dialer{dialer: d, writeTimeout: opts.WriteTimeout}, nil
	}

	parsed, err := url.Parse(proxyURL)
	if err != nil {
		return nil, errors.ConfigError(errors.ErrCodeConfigInvalid, "invalid gateway proxy").WithCause(err)
	}

	switch parsed.Scheme {
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsed.User != nil {
			password, _ := parsed.User.Password()
			auth = &proxy.Auth{User: parsed.User.Username(), Password: password}
		}
		socks, err := proxy.SOCKS5("tcp", parsed.Host, auth, proxy.Direct)
		if err != nil {
			return nil, errors.ConfigError(errors.ErrCodeConfigInvalid, "failed to create socks5 dialer").WithCause(err)
		}
		d.Proxy = nil
		if cd, ok := socks.(proxy.ContextDialer); ok {
			d.NetDialContext = cd.DialContext
		} else {
			d.NetDialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
				return socks.Dial(network, addr)
			}
		}
	case "http", "https":
		d.Proxy = http.ProxyURL(parsed)
	default:
		return nil, errors.ConfigErrorf(errors.ErrCodeConfigInvalid, "unsupported proxy scheme %q", parsed.Scheme)
	}

	return &Dialer{dialer: d, writeTimeout: opts.WriteTimeout}, nil
}

func (d *Dialer) DialContext(ctx context.Context, rawURL string, header http.Header) (iface.FrameConn, error) {
	if header == nil {
		header = make(http.Header)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", constant.UserAgent)
	}

	wsConn, resp, err := d.dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		e := errors.ConnectionError(errors.ErrCodeConnectionDial, constant.ErrMessageConnectFailed).
			WithCause(err).
			WithContext("url", rawURL)
		if resp != nil {
			e.WithContext("status", resp.StatusCode)
		}
		return nil, e
	}
	return NewConnection(wsConn, d.writeTimeout), nil
}

// NormalizeURL maps http(s) gateway URLs onto ws(s).
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.ValidationErrorf(errors.ErrCodeValidationFormat, "unsupported gateway scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.ValidationErrorf(errors.ErrCodeValidationFormat, "gateway url %q has no host", raw)
	}
	return u.String(), nil
}
