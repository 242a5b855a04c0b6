// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

type stdLogger struct {
	logger *log.Logger
}

// NewStdLogger writes "[LEVEL] message" lines through a *log.Logger.
func NewStdLogger(output io.Writer, prefix string, flag int) Logger {
	return &stdLogger{
		logger: log.New(output, prefix, flag),
	}
}

func (l *stdLogger) output(level Level, msg string) {
	l.logger.Print("[" + strings.ToUpper(level.String()) + "] " + msg)
	if level == FatalLevel {
		os.Exit(1)
	}
}

func (l *stdLogger) Debugf(format string, args ...any) { l.output(DebugLevel, fmt.Sprintf(format, args...)) }
func (l *stdLogger) Debug(args ...any)                 { l.output(DebugLevel, fmt.Sprint(args...)) }
func (l *stdLogger) Infof(format string, args ...any)  { l.output(InfoLevel, fmt.Sprintf(format, args...)) }
func (l *stdLogger) Info(args ...any)                  { l.output(InfoLevel, fmt.Sprint(args...)) }
func (l *stdLogger) Warnf(format string, args ...any)  { l.output(WarnLevel, fmt.Sprintf(format, args...)) }
func (l *stdLogger) Warn(args ...any)                  { l.output(WarnLevel, fmt.Sprint(args...)) }
func (l *stdLogger) Errorf(format string, args ...any) { l.output(ErrorLevel, fmt.Sprintf(format, args...)) }
func (l *stdLogger) Error(args ...any)                 { l.output(ErrorLevel, fmt.Sprint(args...)) }
func (l *stdLogger) Fatalf(format string, args ...any) { l.output(FatalLevel, fmt.Sprintf(format, args...)) }
func (l *stdLogger) Fatal(args ...any)                 { l.output(FatalLevel, fmt.Sprint(args...)) }
