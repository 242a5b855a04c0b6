// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cocowh/eludris/core/common"
	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/core/observability"
	"github.com/cocowh/eludris/core/ws"
	"github.com/cocowh/eludris/core/ws/wstest"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	header http.Header
	body   []byte
}

// recorder answers every request with the next scripted response and
// remembers what it was sent.
type recorder struct {
	mu        sync.Mutex
	requests  []recorded
	responses []func(w http.ResponseWriter)
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.requests = append(r.requests, recorded{req.Method, req.URL.Path, req.Header.Clone(), body})
	respond := r.responses[len(r.responses)-1]
	if len(r.requests) <= len(r.responses) {
		respond = r.responses[len(r.requests)-1]
	}
	r.mu.Unlock()
	respond(w)
}

func (r *recorder) calls() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.requests...)
}

func reply(status int, body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func rateLimited(ms int) func(w http.ResponseWriter) {
	return reply(http.StatusTooManyRequests,
		fmt.Sprintf(`{"status":429,"message":"You have been rate limited","data":{"retry_after":%d}}`, ms))
}

func newServer(t *testing.T, responses ...func(w http.ResponseWriter)) (*recorder, *httptest.Server) {
	t.Helper()
	rec := &recorder{responses: responses}
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return rec, srv
}

func TestSendEncodesNameAndContent(t *testing.T) {
	rec, srv := newServer(t, reply(http.StatusOK, `{"ok": true}`))

	client := NewClient(nil).Name("Uwuki").RestURL(srv.URL)
	resp, err := client.Send(context.Background(), "Pong")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(resp.Raw))

	calls := rec.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].method)
	assert.Equal(t, constant.MessagesPath, calls[0].path)
	assert.JSONEq(t, `{"author":"Uwuki","content":"Pong"}`, string(calls[0].body))
	assert.Equal(t, "application/json", calls[0].header.Get("Content-Type"))
	assert.Equal(t, constant.UserAgent, calls[0].header.Get("User-Agent"))
	assert.NotEmpty(t, calls[0].header.Get("X-Request-ID"))
}

func TestSendDecodesMessage(t *testing.T) {
	_, srv := newServer(t, reply(http.StatusOK, `{"author":"Uwuki","content":"héllo \"world\""}`))

	resp, err := NewClient(nil).Name("Uwuki").RestURL(srv.URL).Send(context.Background(), `héllo "world"`)
	require.NoError(t, err)
	assert.Equal(t, "Uwuki", resp.Message.Author)
	assert.Equal(t, `héllo "world"`, resp.Message.Content)
}

func TestSendEmptyBody(t *testing.T) {
	_, srv := newServer(t, reply(http.StatusNoContent, ""))

	resp, err := NewClient(nil).Name("Uwuki").RestURL(srv.URL).Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Nil(t, resp.Raw)
}

func TestSendWithoutNameIsValidationError(t *testing.T) {
	rec, srv := newServer(t, reply(http.StatusOK, `{}`))

	_, err := NewClient(nil).RestURL(srv.URL).Send(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNameRequired)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Empty(t, rec.calls())
}

func TestNonSuccessIsAPIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		code    errors.ErrorCode
		message string
	}{
		{"rejected", http.StatusBadRequest, `{"status":400,"message":"The author name is too long"}`, errors.ErrCodeAPIRejected, "The author name is too long"},
		{"not found", http.StatusNotFound, `{"status":404,"message":"Not found"}`, errors.ErrCodeAPINotFound, "Not found"},
		{"server", http.StatusBadGateway, `upstream down`, errors.ErrCodeAPIServerError, "upstream down"},
		{"no body", http.StatusForbidden, ``, errors.ErrCodeAPIRejected, "Forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, srv := newServer(t, reply(tt.status, tt.body))

			_, err := NewClient(nil).Name("Uwuki").RestURL(srv.URL).Send(context.Background(), "hi")
			require.Error(t, err)
			assert.True(t, errors.IsAPI(err))
			assert.False(t, errors.IsTransport(err))
			assert.Len(t, rec.calls(), 1)

			var e *errors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.status, e.Context["status"])

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestAPIErrorKeepsPayload(t *testing.T) {
	_, srv := newServer(t, reply(http.StatusBadRequest, `{"status":400,"message":"bad","data":{"field":"author"}}`))

	_, err := NewClient(nil).Name("Uwuki").RestURL(srv.URL).Send(context.Background(), "hi")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.JSONEq(t, `{"status":400,"message":"bad","data":{"field":"author"}}`, string(apiErr.Payload))
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(nil).Name("Uwuki").RestURL(url).Send(context.Background(), "hi")
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.False(t, errors.IsAPI(err))
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

func TestInjectedDoer(t *testing.T) {
	var calls int32
	opts := NewClientOptions()
	opts.HTTPClient = doerFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "https://eludris.tooty.xyz/messages", req.URL.String())
		return nil, context.DeadlineExceeded
	})

	_, err := NewClient(opts).Name("Uwuki").Send(context.Background(), "hi")
	require.Error(t, err)

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errors.ErrCodeTransportTimeout, e.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSuccessBodyNotJSON(t *testing.T) {
	_, srv := newServer(t, reply(http.StatusOK, `<html>ok</html>`))

	_, err := NewClient(nil).Name("Uwuki").RestURL(srv.URL).Send(context.Background(), "hi")
	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errors.ErrCodeTransportBadResponse, e.Code)
}

func TestRateLimitedIsNotRetriedByDefault(t *testing.T) {
	rec, srv := newServer(t, rateLimited(10), reply(http.StatusOK, `{}`))

	_, err := NewClient(nil).Name("Uwuki").RestURL(srv.URL).Send(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Len(t, rec.calls(), 1)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 10*time.Millisecond, apiErr.RetryAfter)
	assert.Equal(t, "You have been rate limited", apiErr.Message)
}

func TestRateLimitedRetryOptIn(t *testing.T) {
	rec, srv := newServer(t, rateLimited(5), rateLimited(5), reply(http.StatusOK, `{"author":"Uwuki","content":"hi"}`))

	opts := NewClientOptions()
	opts.RetryRateLimited = true
	resp, err := NewClient(opts).Name("Uwuki").RestURL(srv.URL).Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Message.Content)
	assert.Len(t, rec.calls(), 3)
}

func TestRateLimitedRetryIsBounded(t *testing.T) {
	rec, srv := newServer(t, rateLimited(1))

	opts := NewClientOptions()
	opts.RetryRateLimited = true
	opts.MaxRateLimitRetries = 2
	_, err := NewClient(opts).Name("Uwuki").RestURL(srv.URL).Send(context.Background(), "hi")
	assert.ErrorIs(t, err, common.ErrRateLimited)
	assert.Len(t, rec.calls(), 3)
}

func TestRateLimitedRetryHonoursContext(t *testing.T) {
	rec, srv := newServer(t, rateLimited(60000))

	opts := NewClientOptions()
	opts.RetryRateLimited = true
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewClient(opts).Name("Uwuki").RestURL(srv.URL).Send(ctx, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, rec.calls(), 1)
}

func TestRetryAfterDefault(t *testing.T) {
	e := newAPIError(http.StatusTooManyRequests, []byte(`{"status":429}`))
	assert.Equal(t, defaultRetryAfter, e.RetryAfter)

	e = newAPIError(http.StatusTooManyRequests, []byte(`{"retry_after":250}`))
	assert.Equal(t, 250*time.Millisecond, e.RetryAfter)
}

func TestBuilders(t *testing.T) {
	c := NewClient(nil)
	assert.Equal(t, constant.DefaultRestURL, c.URL())
	assert.Same(t, c, c.Name("Uwuki"))
	assert.Same(t, c, c.RestURL("http://0.0.0.0:7159/"))
	assert.Equal(t, "Uwuki", c.Author())
	assert.Equal(t, "http://0.0.0.0:7159", c.URL())
}

func TestSetHeader(t *testing.T) {
	rec, srv := newServer(t, reply(http.StatusOK, `{}`))

	c := NewClient(nil).Name("Uwuki").RestURL(srv.URL)
	c.SetHeader("Authorization", "Bearer abc")
	_, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", rec.calls()[0].header.Get("Authorization"))
}

func TestFetchInstanceInfo(t *testing.T) {
	srv := wstest.NewServer(wstest.Options{})
	defer srv.Close()

	info, err := NewClient(nil).RestURL(srv.URL).FetchInstanceInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wstest", info.InstanceName)
	require.NotNil(t, info.PandemoniumURL)
	assert.Equal(t, srv.GatewayURL(), *info.PandemoniumURL)
}

func TestCreateGatewayEndToEnd(t *testing.T) {
	srv := wstest.NewServer(wstest.Options{})
	defer srv.Close()

	client := NewClient(nil).Name("Uwuki").RestURL(srv.URL)
	gw, err := client.CreateGateway(context.Background())
	require.NoError(t, err)
	defer gw.Close()
	assert.Equal(t, srv.GatewayURL(), gw.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := gw.GetEvents(ctx)
	require.NoError(t, err)

	_, err = client.Send(ctx, "Pong")
	require.NoError(t, err)

	ev, err := events.Next(ctx)
	require.NoError(t, err)
	msg, ok := ev.(*ws.MessageEvent)
	require.True(t, ok)
	assert.Equal(t, "Uwuki", msg.Author)
	assert.Equal(t, "Pong", msg.Content)
}

func TestCreateGatewayAuthenticatesWithToken(t *testing.T) {
	srv := wstest.NewServer(wstest.Options{})
	defer srv.Close()

	gw, err := NewClient(nil).RestURL(srv.URL).Token("tok").CreateGateway(context.Background())
	require.NoError(t, err)
	defer gw.Close()

	_, err = gw.GetEvents(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(srv.ReceivedOp(constant.OpAuthenticate)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreateGatewayWithoutPandemonium(t *testing.T) {
	srv := wstest.NewServer(wstest.Options{NoGateway: true})
	defer srv.Close()

	_, err := NewClient(nil).RestURL(srv.URL).CreateGateway(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsHandshake(err))
	assert.ErrorIs(t, err, common.ErrNoGateway)

	gw, err := NewClient(nil).RestURL(srv.URL).GatewayURL(srv.GatewayURL()).CreateGateway(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.GatewayURL(), gw.URL())
}

func TestCreateGatewayMalformedInfo(t *testing.T) {
	for _, body := range []string{`not json`, `{"instance_name":"x","pandemonium_url":5}`} {
		_, srv := newServer(t, reply(http.StatusOK, body))

		_, err := NewClient(nil).RestURL(srv.URL).CreateGateway(context.Background())
		var e *errors.Error
		require.True(t, errors.As(err, &e), body)
		assert.Equal(t, errors.ErrCodeHandshakeParse, e.Code, body)
	}
}

func TestCreateGatewayNormalizesURL(t *testing.T) {
	_, srv := newServer(t, reply(http.StatusOK, `{"instance_name":"x","pandemonium_url":"https://gateway.example/ws/"}`))

	gw, err := NewClient(nil).RestURL(srv.URL).CreateGateway(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wss://gateway.example/ws/", gw.URL())
}

func TestCreateGatewayAPIError(t *testing.T) {
	_, srv := newServer(t, reply(http.StatusServiceUnavailable, `{"status":503,"message":"maintenance"}`))

	_, err := NewClient(nil).RestURL(srv.URL).CreateGateway(context.Background())
	assert.True(t, errors.IsAPI(err))
}

func TestMetrics(t *testing.T) {
	_, srv := newServer(t, reply(http.StatusOK, `{}`), rateLimited(1))

	reg := prometheus.NewRegistry()
	opts := NewClientOptions()
	opts.Metrics = observability.NewMetrics(reg)
	c := NewClient(opts).Name("Uwuki").RestURL(srv.URL)

	_, err := c.Send(context.Background(), "one")
	require.NoError(t, err)
	_, err = c.Send(context.Background(), "two")
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "eludris_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "eludris_rate_limited_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSendResponseJSON(t *testing.T) {
	resp, err := decodeSendResponse([]byte(`[1,2]`))
	require.NoError(t, err)
	assert.Empty(t, resp.Message.Author)

	b, err := json.Marshal(resp.Raw)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(b))
}
