// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package httpx

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/cocowh/eludris/core/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg).RecordFrameError()

	srv := NewServer("127.0.0.1:0", nil)
	srv.AddRoute("/metrics", observability.Handler(reg))
	require.NoError(t, srv.Start())
	defer srv.Stop(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "eludris_gateway_frame_errors_total 1")

	require.NoError(t, srv.Stop(context.Background()))
	_, err = http.Get("http://" + srv.Addr() + "/metrics")
	assert.Error(t, err)
}

func TestServerStartFailsOnBusyAddr(t *testing.T) {
	first := NewServer("127.0.0.1:0", nil)
	require.NoError(t, first.Start())
	defer first.Stop(context.Background())

	second := NewServer(first.Addr(), nil)
	assert.Error(t, second.Start())
}

func TestStopBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer(":0", nil).Stop(context.Background()))
}
