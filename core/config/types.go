// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"time"
)

// ClientConfig 客户端配置
type ClientConfig struct {
	Name       string
	Token      string
	RestURL    string
	GatewayURL string
}

// HTTPConfig REST客户端配置
type HTTPConfig struct {
	Timeout             time.Duration
	RetryRateLimited    bool
	MaxRateLimitRetries int
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	Proxy            string
	EventBuffer      int
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level           string
	Format          string
	LogDir          string
	BaseName        string
	MaxSizeMB       int
	MaxAgeDays      int
	MaxBackups      int
	Compress        bool
	Async           bool
	AsyncBufferSize int
	EnableStdout    bool
	EnableWarnFile  bool
	EnableErrorFile bool
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool
	Address string
}
