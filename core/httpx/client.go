// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cocowh/eludris/core/common"
	"github.com/cocowh/eludris/core/config"
	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/core/iface"
	"github.com/cocowh/eludris/core/models"
	"github.com/cocowh/eludris/core/observability"
	"github.com/cocowh/eludris/core/ws"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/cocowh/eludris/pkg/logger"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	endpointInfo     = "info"
	endpointMessages = "messages"
)

// Client talks to the REST side of an instance.
type Client struct {
	mu         sync.RWMutex
	doer       iface.HTTPDoer
	name       string
	restURL    string
	token      string
	gatewayURL string
	header     map[string]string
	opts       *ClientOptions
}

type ClientOptions struct {
	Timeout             time.Duration
	RetryRateLimited    bool
	MaxRateLimitRetries int
	// HTTPClient replaces the default *http.Client.
	HTTPClient iface.HTTPDoer
	Metrics    *observability.Metrics
	// Gateway is handed to gateways made by CreateGateway.
	Gateway *ws.ClientOptions
}

func NewClientOptions() *ClientOptions {
	return &ClientOptions{
		Timeout:             constant.DefaultHTTPTimeout,
		MaxRateLimitRetries: constant.DefaultMaxRateLimitRetries,
	}
}

// ClientOptionsFromConfig reads the http and gateway sections of cm.
func ClientOptionsFromConfig(cm *config.ConfigManager) *ClientOptions {
	hc := cm.GetHTTPConfig()
	opts := NewClientOptions()
	if hc.Timeout > 0 {
		opts.Timeout = hc.Timeout
	}
	opts.RetryRateLimited = hc.RetryRateLimited
	opts.MaxRateLimitRetries = hc.MaxRateLimitRetries
	opts.Gateway = ws.ClientOptionsFromConfig(cm)
	return opts
}

// NewClient creates a client for the default public instance.
func NewClient(opts *ClientOptions) *Client {
	if opts == nil {
		opts = NewClientOptions()
	}
	doer := opts.HTTPClient
	if doer == nil {
		doer = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		doer:    doer,
		restURL: constant.DefaultRestURL,
		header:  make(map[string]string),
		opts:    opts,
	}
}

// NewClientFromConfig builds a client from every section of cm.
func NewClientFromConfig(cm *config.ConfigManager, metrics *observability.Metrics) *Client {
	opts := ClientOptionsFromConfig(cm)
	opts.Metrics = metrics
	opts.Gateway.Metrics = metrics

	cc := cm.GetClientConfig()
	c := NewClient(opts).Name(cc.Name).Token(cc.Token).GatewayURL(cc.GatewayURL)
	if cc.RestURL != "" {
		c.RestURL(cc.RestURL)
	}
	return c
}

// Name sets the author used by Send.
func (c *Client) Name(name string) *Client {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
	return c
}

func (c *Client) RestURL(url string) *Client {
	c.mu.Lock()
	c.restURL = strings.TrimRight(url, "/")
	c.mu.Unlock()
	return c
}

// Token is used to authenticate gateways made by CreateGateway.
func (c *Client) Token(token string) *Client {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	return c
}

// GatewayURL is used by CreateGateway when the instance does not advertise
// a pandemonium url.
func (c *Client) GatewayURL(url string) *Client {
	c.mu.Lock()
	c.gatewayURL = url
	c.mu.Unlock()
	return c
}

func (c *Client) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.header[key] = value
}

func (c *Client) Author() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Client) URL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.restURL
}

// SendResponse is the acknowledgement of a posted message. Raw holds the
// body exactly as the server sent it.
type SendResponse struct {
	Message models.Message
	Raw     json.RawMessage
}

// Send posts content under the configured name.
func (c *Client) Send(ctx context.Context, content string) (*SendResponse, error) {
	name := c.Author()
	if name == "" {
		return nil, common.ErrNameRequired
	}
	return c.SendMessage(ctx, name, content)
}

// SendMessage posts content under author. Rate limited responses are
// retried only when RetryRateLimited is set.
func (c *Client) SendMessage(ctx context.Context, author, content string) (*SendResponse, error) {
	if author == "" {
		return nil, common.ErrNameRequired
	}
	body, err := json.Marshal(models.Message{Author: author, Content: content})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidationFormat, errors.CategoryValidation, "failed to encode message")
	}

	for attempt := 0; ; attempt++ {
		raw, err := c.do(ctx, http.MethodPost, constant.MessagesPath, endpointMessages, body)
		if err == nil {
			return decodeSendResponse(raw)
		}

		apiErr := asAPIError(err)
		if apiErr == nil || apiErr.StatusCode != http.StatusTooManyRequests {
			return nil, err
		}
		if !c.opts.RetryRateLimited || attempt >= c.opts.MaxRateLimitRetries {
			return nil, err
		}

		logger.Infof("rate limited at %s, retrying in %s", constant.MessagesPath, apiErr.RetryAfter)
		timer := time.NewTimer(apiErr.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.Convert(ctx.Err())
		case <-timer.C:
		}
	}
}

func decodeSendResponse(raw []byte) (*SendResponse, error) {
	resp := &SendResponse{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, errors.TransportError(errors.ErrCodeTransportBadResponse, "response is not json").
			WithContext("body", string(raw))
	}
	resp.Raw = json.RawMessage(raw)
	if gjson.ParseBytes(raw).IsObject() {
		_ = json.Unmarshal(raw, &resp.Message)
	}
	return resp, nil
}

// FetchInstanceInfo fetches the instance root.
func (c *Client) FetchInstanceInfo(ctx context.Context) (*models.InstanceInfo, error) {
	raw, err := c.do(ctx, http.MethodGet, "/", endpointInfo, nil)
	if err != nil {
		return nil, err
	}
	var info models.InstanceInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransportBadResponse, errors.CategoryTransport, "malformed instance info")
	}
	return &info, nil
}

// CreateGateway looks up the instance's pandemonium url and returns a
// gateway client bound to it. No connection is opened until GetEvents.
func (c *Client) CreateGateway(ctx context.Context) (*ws.GatewayClient, error) {
	raw, err := c.do(ctx, http.MethodGet, "/", endpointInfo, nil)
	if err != nil {
		return nil, err
	}

	var info models.InstanceInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, errors.HandshakeError(errors.ErrCodeHandshakeParse, "malformed instance info").WithCause(err)
	}

	c.mu.RLock()
	token, fallback := c.token, c.gatewayURL
	c.mu.RUnlock()

	gatewayURL := fallback
	if info.PandemoniumURL != nil && *info.PandemoniumURL != "" {
		gatewayURL = *info.PandemoniumURL
	}
	if gatewayURL == "" {
		return nil, errors.HandshakeError(errors.ErrCodeHandshakeNoGateway, constant.ErrMessageNoGateway).
			WithContext("instance", info.InstanceName)
	}

	normalized, err := ws.NormalizeURL(gatewayURL)
	if err != nil {
		return nil, errors.HandshakeError(errors.ErrCodeHandshakeParse, "invalid pandemonium url").
			WithCause(err).
			WithContext("url", gatewayURL)
	}

	logger.Debugf("instance %s gateway at %s", info.InstanceName, normalized)
	return ws.NewClient(token, c.opts.Gateway).GatewayURL(normalized), nil
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, body []byte) ([]byte, error) {
	c.mu.RLock()
	url := c.restURL + path
	header := make(map[string]string, len(c.header))
	for k, v := range c.header {
		header[k] = v
	}
	c.mu.RUnlock()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidationFormat, errors.CategoryValidation, "invalid request").
			WithContext("url", url)
	}

	req.Header.Set("User-Agent", constant.UserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range header {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		c.opts.Metrics.RecordRequest(endpoint, 0, time.Since(start))
		return nil, errors.Convert(err).WithContext("url", url)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	c.opts.Metrics.RecordRequest(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, errors.Convert(err).WithContext("url", url)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp.StatusCode, raw)
		if apiErr.StatusCode == http.StatusTooManyRequests {
			c.opts.Metrics.RecordRateLimited()
		}
		logger.Debugf("%s %s: %v", method, url, apiErr)
		return nil, apiErr.wrap(endpoint)
	}
	return raw, nil
}

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}
