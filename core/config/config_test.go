// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/cocowh/eludris/pkg/logger"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cm, err := NewConfigManager("")
	require.NoError(t, err)

	client := cm.GetClientConfig()
	assert.Equal(t, constant.DefaultRestURL, client.RestURL)
	assert.Empty(t, client.Name)

	httpCfg := cm.GetHTTPConfig()
	assert.Equal(t, constant.DefaultHTTPTimeout, httpCfg.Timeout)
	assert.False(t, httpCfg.RetryRateLimited)
	assert.Equal(t, constant.DefaultMaxRateLimitRetries, httpCfg.MaxRateLimitRetries)

	gw := cm.GetGatewayConfig()
	assert.Equal(t, constant.DefaultHandshakeTimeout, gw.HandshakeTimeout)
	assert.Equal(t, constant.DefaultEventBuffer, gw.EventBuffer)
	assert.Empty(t, gw.Proxy)

	assert.Equal(t, logger.InfoLevel, cm.LoggerOptions().Level)
	assert.False(t, cm.GetMetricsConfig().Enabled)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "eludris.yaml", `
client:
  name: Uwuki
  token: secret
  rest_url: http://localhost:7159/
  gateway_url: ws://localhost:7160
http:
  timeout: 3s
  retry_rate_limited: true
gateway:
  handshake_timeout: 2s
  proxy: socks5://127.0.0.1:1080
logger:
  level: debug
  async: true
`)
	cm, err := NewConfigManager(path)
	require.NoError(t, err)

	client := cm.GetClientConfig()
	assert.Equal(t, "Uwuki", client.Name)
	assert.Equal(t, "secret", client.Token)
	assert.Equal(t, "http://localhost:7159", client.RestURL)
	assert.Equal(t, "ws://localhost:7160", client.GatewayURL)

	assert.Equal(t, 3*time.Second, cm.GetHTTPConfig().Timeout)
	assert.True(t, cm.GetHTTPConfig().RetryRateLimited)
	assert.Equal(t, 2*time.Second, cm.GetGatewayConfig().HandshakeTimeout)
	assert.Equal(t, "socks5://127.0.0.1:1080", cm.GetGatewayConfig().Proxy)

	opts := cm.LoggerOptions()
	assert.Equal(t, logger.DebugLevel, opts.Level)
	assert.True(t, opts.Async)
	assert.Equal(t, 1024, opts.AsyncBufferSize)
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "eludris.toml", `
[client]
name = "Uwuki"

[metrics]
enabled = true
address = ":9100"
`)
	cm, err := NewConfigManager(path)
	require.NoError(t, err)
	assert.Equal(t, "Uwuki", cm.GetClientConfig().Name)
	assert.Equal(t, MetricsConfig{Enabled: true, Address: ":9100"}, cm.GetMetricsConfig())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ELUDRIS_CLIENT_NAME", "EnvBot")
	t.Setenv("ELUDRIS_HTTP_MAX_RATE_LIMIT_RETRIES", "7")

	cm, err := NewConfigManager("")
	require.NoError(t, err)
	assert.Equal(t, "EnvBot", cm.GetClientConfig().Name)
	assert.Equal(t, 7, cm.GetHTTPConfig().MaxRateLimitRetries)
}

func TestSetOverrides(t *testing.T) {
	cm, err := NewConfigManager("")
	require.NoError(t, err)

	cm.Set("client.name", "Flag")
	assert.Equal(t, "Flag", cm.GetClientConfig().Name)
}

func TestMissingFile(t *testing.T) {
	_, err := NewConfigManager(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var e *errors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errors.ErrCodeConfigNotFound, e.Code)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"rest scheme", "client:\n  rest_url: ftp://localhost\n"},
		{"gateway scheme", "client:\n  gateway_url: http://localhost\n"},
		{"proxy scheme", "gateway:\n  proxy: gopher://localhost\n"},
		{"negative retries", "http:\n  max_rate_limit_retries: -1\n"},
		{"negative timeout", "http:\n  timeout: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigManager(writeConfig(t, "c.yaml", tt.content))
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
		})
	}
}

func TestReload(t *testing.T) {
	path := writeConfig(t, "eludris.yaml", "client:\n  name: Before\n")
	cm, err := NewConfigManager(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("client:\n  name: After\n"), 0o600))
	require.NoError(t, cm.Reload())
	assert.Equal(t, "After", cm.GetClientConfig().Name)
}

func TestEncode(t *testing.T) {
	cm, err := NewConfigManager("")
	require.NoError(t, err)
	cm.Set("client.name", "Uwuki")
	cm.Set("client.token", "hunter2")

	out, err := cm.Encode("yaml", false)
	require.NoError(t, err)
	var fromYAML map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(out, &fromYAML))
	assert.Equal(t, "Uwuki", fromYAML["client"]["name"])
	assert.Equal(t, "<redacted>", fromYAML["client"]["token"])
	assert.Equal(t, "30s", fromYAML["http"]["timeout"])

	out, err = cm.Encode("toml", true)
	require.NoError(t, err)
	var fromTOML map[string]map[string]any
	require.NoError(t, toml.Unmarshal(out, &fromTOML))
	assert.Equal(t, "hunter2", fromTOML["client"]["token"])

	out, err = cm.Encode("json", false)
	require.NoError(t, err)
	var fromJSON map[string]map[string]any
	require.NoError(t, json.Unmarshal(out, &fromJSON))
	assert.Equal(t, constant.DefaultRestURL, fromJSON["client"]["rest_url"])

	_, err = cm.Encode("ini", false)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfig))
}
