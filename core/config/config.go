// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"net/url"
	"strings"
	"sync"

	"github.com/cocowh/eludris/core/config/codec"
	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/pkg/errors"
	"github.com/cocowh/eludris/pkg/logger"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ELUDRIS_HTTP_TIMEOUT.
const EnvPrefix = "ELUDRIS"

// ConfigManager 配置管理器
type ConfigManager struct {
	viper *viper.Viper
	mutex sync.RWMutex
}

// NewConfigManager reads configPath (yaml, toml or json) when it is not
// empty, applies ELUDRIS_* environment overrides and fills defaults.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.ConfigError(errors.ErrCodeConfigNotFound, "failed to read config file").
				WithCause(err).
				WithContext("config_path", configPath)
		}
	}

	cm := &ConfigManager{viper: v}
	cm.setDefaults()

	if err := cm.validateConfig(); err != nil {
		return nil, err
	}
	return cm, nil
}

// Viper exposes the underlying instance so callers can bind flags.
func (cm *ConfigManager) Viper() *viper.Viper {
	return cm.viper
}

// Set overrides a single key, e.g. from a command line flag.
func (cm *ConfigManager) Set(key string, value any) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.viper.Set(key, value)
}

func (cm *ConfigManager) setDefaults() {
	defaults := map[string]any{
		"client.name":                 "",
		"client.token":                "",
		"client.rest_url":             constant.DefaultRestURL,
		"client.gateway_url":          "",
		"http.timeout":                constant.DefaultHTTPTimeout,
		"http.retry_rate_limited":     false,
		"http.max_rate_limit_retries": constant.DefaultMaxRateLimitRetries,
		"gateway.handshake_timeout":   constant.DefaultHandshakeTimeout,
		"gateway.write_timeout":       constant.DefaultWriteTimeout,
		"gateway.proxy":               "",
		"gateway.event_buffer":        constant.DefaultEventBuffer,
		"logger.level":                "info",
		"logger.format":               "text",
		"logger.log_dir":              "",
		"logger.base_name":            "eludris",
		"logger.max_size_mb":          100,
		"logger.max_age_days":         7,
		"logger.max_backups":          3,
		"logger.compress":             false,
		"logger.async":                false,
		"logger.async_channel_size":   1024,
		"logger.enable_stdout":        true,
		"logger.enable_warn_file":     false,
		"logger.enable_error_file":    false,
		"metrics.enabled":             false,
		"metrics.address":             ":9090",
	}
	for k, v := range defaults {
		cm.viper.SetDefault(k, v)
	}
}

// validateConfig 验证配置
func (cm *ConfigManager) validateConfig() error {
	restURL := cm.viper.GetString("client.rest_url")
	if err := checkURL(restURL, "http", "https"); err != nil {
		return errors.ConfigError(errors.ErrCodeConfigInvalid, "invalid rest url").
			WithCause(err).
			WithContext("client.rest_url", restURL)
	}

	if gatewayURL := cm.viper.GetString("client.gateway_url"); gatewayURL != "" {
		if err := checkURL(gatewayURL, "ws", "wss"); err != nil {
			return errors.ConfigError(errors.ErrCodeConfigInvalid, "invalid gateway url").
				WithCause(err).
				WithContext("client.gateway_url", gatewayURL)
		}
	}

	if proxy := cm.viper.GetString("gateway.proxy"); proxy != "" {
		if err := checkURL(proxy, "socks5", "socks5h", "http", "https"); err != nil {
			return errors.ConfigError(errors.ErrCodeConfigInvalid, "invalid gateway proxy").
				WithCause(err).
				WithContext("gateway.proxy", proxy)
		}
	}

	if cm.viper.GetInt("http.max_rate_limit_retries") < 0 {
		return errors.ConfigError(errors.ErrCodeConfigInvalid, "http.max_rate_limit_retries must not be negative")
	}

	if cm.viper.GetDuration("http.timeout") < 0 || cm.viper.GetDuration("gateway.handshake_timeout") < 0 {
		return errors.ConfigError(errors.ErrCodeConfigInvalid, "timeouts must not be negative")
	}

	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			if u.Host == "" {
				return errors.ValidationErrorf(errors.ErrCodeValidationFormat, "url %q has no host", raw)
			}
			return nil
		}
	}
	return errors.ValidationErrorf(errors.ErrCodeValidationFormat, "url %q must use one of %v", raw, schemes)
}

// GetClientConfig 获取客户端配置
func (cm *ConfigManager) GetClientConfig() ClientConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	return ClientConfig{
		Name:       cm.viper.GetString("client.name"),
		Token:      cm.viper.GetString("client.token"),
		RestURL:    strings.TrimRight(cm.viper.GetString("client.rest_url"), "/"),
		GatewayURL: cm.viper.GetString("client.gateway_url"),
	}
}

// GetHTTPConfig 获取REST客户端配置
func (cm *ConfigManager) GetHTTPConfig() HTTPConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	return HTTPConfig{
		Timeout:             cm.viper.GetDuration("http.timeout"),
		RetryRateLimited:    cm.viper.GetBool("http.retry_rate_limited"),
		MaxRateLimitRetries: cm.viper.GetInt("http.max_rate_limit_retries"),
	}
}

// GetGatewayConfig 获取网关配置
func (cm *ConfigManager) GetGatewayConfig() GatewayConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	return GatewayConfig{
		HandshakeTimeout: cm.viper.GetDuration("gateway.handshake_timeout"),
		WriteTimeout:     cm.viper.GetDuration("gateway.write_timeout"),
		Proxy:            cm.viper.GetString("gateway.proxy"),
		EventBuffer:      cm.viper.GetInt("gateway.event_buffer"),
	}
}

// GetLoggerConfig 获取日志配置
func (cm *ConfigManager) GetLoggerConfig() LoggerConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	return LoggerConfig{
		Level:           cm.viper.GetString("logger.level"),
		Format:          cm.viper.GetString("logger.format"),
		LogDir:          cm.viper.GetString("logger.log_dir"),
		BaseName:        cm.viper.GetString("logger.base_name"),
		MaxSizeMB:       cm.viper.GetInt("logger.max_size_mb"),
		MaxAgeDays:      cm.viper.GetInt("logger.max_age_days"),
		MaxBackups:      cm.viper.GetInt("logger.max_backups"),
		Compress:        cm.viper.GetBool("logger.compress"),
		Async:           cm.viper.GetBool("logger.async"),
		AsyncBufferSize: cm.viper.GetInt("logger.async_channel_size"),
		EnableStdout:    cm.viper.GetBool("logger.enable_stdout"),
		EnableWarnFile:  cm.viper.GetBool("logger.enable_warn_file"),
		EnableErrorFile: cm.viper.GetBool("logger.enable_error_file"),
	}
}

// LoggerOptions converts the logger section for pkg/logger.
func (cm *ConfigManager) LoggerOptions() *logger.Config {
	lc := cm.GetLoggerConfig()
	return &logger.Config{
		LogDir:          lc.LogDir,
		BaseName:        lc.BaseName,
		Format:          lc.Format,
		Level:           logger.ParseLevel(lc.Level),
		Compress:        lc.Compress,
		MaxSizeMB:       lc.MaxSizeMB,
		MaxBackups:      lc.MaxBackups,
		MaxAgeDays:      lc.MaxAgeDays,
		EnableStdout:    lc.EnableStdout,
		EnableWarnFile:  lc.EnableWarnFile,
		EnableErrorFile: lc.EnableErrorFile,
		Async:           lc.Async,
		AsyncBufferSize: lc.AsyncBufferSize,
	}
}

// GetMetricsConfig 获取监控配置
func (cm *ConfigManager) GetMetricsConfig() MetricsConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	return MetricsConfig{
		Enabled: cm.viper.GetBool("metrics.enabled"),
		Address: cm.viper.GetString("metrics.address"),
	}
}

// Reload 重新加载配置
func (cm *ConfigManager) Reload() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.viper.ConfigFileUsed() == "" {
		return nil
	}
	if err := cm.viper.ReadInConfig(); err != nil {
		return errors.ConfigError(errors.ErrCodeConfigParseError, "failed to reload config").WithCause(err)
	}
	return cm.validateConfig()
}

// Encode renders the effective configuration in format. The token is
// redacted unless showSecrets is set.
func (cm *ConfigManager) Encode(format string, showSecrets bool) ([]byte, error) {
	c, err := codec.New(format)
	if err != nil {
		return nil, errors.ConfigError(errors.ErrCodeConfigInvalid, "unknown output format").WithCause(err)
	}

	settings := cm.settings(showSecrets)
	out, err := c.Encode(settings)
	if err != nil {
		return nil, errors.ConfigError(errors.ErrCodeConfigParseError, "failed to encode config").
			WithCause(err).
			WithContext("format", c.Ext())
	}
	return out, nil
}

func (cm *ConfigManager) settings(showSecrets bool) map[string]any {
	client := cm.GetClientConfig()
	httpCfg := cm.GetHTTPConfig()
	gw := cm.GetGatewayConfig()
	lc := cm.GetLoggerConfig()
	mc := cm.GetMetricsConfig()

	token := client.Token
	if token != "" && !showSecrets {
		token = "<redacted>"
	}

	return map[string]any{
		"client": map[string]any{
			"name":        client.Name,
			"token":       token,
			"rest_url":    client.RestURL,
			"gateway_url": client.GatewayURL,
		},
		"http": map[string]any{
			"timeout":                httpCfg.Timeout.String(),
			"retry_rate_limited":     httpCfg.RetryRateLimited,
			"max_rate_limit_retries": httpCfg.MaxRateLimitRetries,
		},
		"gateway": map[string]any{
			"handshake_timeout": gw.HandshakeTimeout.String(),
			"write_timeout":     gw.WriteTimeout.String(),
			"proxy":             gw.Proxy,
			"event_buffer":      gw.EventBuffer,
		},
		"logger": map[string]any{
			"level":              lc.Level,
			"format":             lc.Format,
			"log_dir":            lc.LogDir,
			"base_name":          lc.BaseName,
			"max_size_mb":        lc.MaxSizeMB,
			"max_age_days":       lc.MaxAgeDays,
			"max_backups":        lc.MaxBackups,
			"compress":           lc.Compress,
			"async":              lc.Async,
			"async_channel_size": lc.AsyncBufferSize,
			"enable_stdout":      lc.EnableStdout,
			"enable_warn_file":   lc.EnableWarnFile,
			"enable_error_file":  lc.EnableErrorFile,
		},
		"metrics": map[string]any{
			"enabled": mc.Enabled,
			"address": mc.Address,
		},
	}
}
