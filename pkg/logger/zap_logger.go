// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logger

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// callerSkip hides the package helpers (Infof, emit, dispatch) from the
// reported caller.
const callerSkip = 3

// NewZapLoggerWithConfig builds a zap logger writing to rotating files under
// cfg.LogDir and, when enabled or when no directory is set, to stderr.
func NewZapLoggerWithConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	cores := []zapcore.Core{}
	level := zap.NewAtomicLevelAt(cfg.Level.toZapLevel())

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(newRotatingWriter(cfg)), level))

		if cfg.EnableWarnFile {
			warnCfg := cfg.Clone()
			warnCfg.BaseName += "-warn"
			cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(newRotatingWriter(warnCfg)), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
				return l >= zapcore.WarnLevel
			})))
		}

		if cfg.EnableErrorFile {
			errorCfg := cfg.Clone()
			errorCfg.BaseName += "-error"
			cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(newRotatingWriter(errorCfg)), zap.LevelEnablerFunc(func(l zapcore.Level) bool {
				return l >= zapcore.ErrorLevel
			})))
		}
	}

	if cfg.EnableStdout || len(cores) == 0 {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}

	zapLogger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(callerSkip))
	return NewZapLogger(zapLogger), nil
}

// NewZapLogger adapts an existing zap logger.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLoggerWrapper{SugaredLogger: l.Sugar()}
}

func newRotatingWriter(cfg *Config) io.Writer {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, cfg.BaseName+".log"),
		MaxSize:    maxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

// zapLoggerWrapper satisfies Logger through the embedded sugared logger.
type zapLoggerWrapper struct {
	*zap.SugaredLogger
}
