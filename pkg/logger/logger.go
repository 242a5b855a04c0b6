// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logger

import (
	"log"
	"os"
	"sync"

	"github.com/spf13/viper"
)

var (
	mu      sync.RWMutex
	loggers []Logger

	// fallback receives warnings and errors while no logger is registered.
	fallback Logger = NewStdLogger(os.Stderr, "eludris ", log.LstdFlags)

	logEventPool = sync.Pool{New: func() any {
		return &LogEvent{}
	}}
)

type Logger interface {
	Debugf(format string, args ...any)
	Debug(args ...any)
	Infof(format string, args ...any)
	Info(args ...any)
	Warnf(format string, args ...any)
	Warn(args ...any)
	Errorf(format string, args ...any)
	Error(args ...any)
	Fatalf(format string, args ...any)
	Fatal(args ...any)
}

// LogEvent is one log call. An empty Format means Args are printed as is.
type LogEvent struct {
	Level  Level
	Format string
	Args   []any
}

func acquireLogEvent(level Level, format string, args []any) *LogEvent {
	event := logEventPool.Get().(*LogEvent)
	event.Level = level
	event.Format = format
	event.Args = args
	return event
}

func releaseLogEvent(event *LogEvent) {
	event.Format = ""
	event.Args = nil
	logEventPool.Put(event)
}

// dispatch replays the event on l.
func (e *LogEvent) dispatch(l Logger) {
	formatted := e.Format != ""
	switch e.Level {
	case TraceLevel, DebugLevel:
		if formatted {
			l.Debugf(e.Format, e.Args...)
		} else {
			l.Debug(e.Args...)
		}
	case InfoLevel:
		if formatted {
			l.Infof(e.Format, e.Args...)
		} else {
			l.Info(e.Args...)
		}
	case WarnLevel:
		if formatted {
			l.Warnf(e.Format, e.Args...)
		} else {
			l.Warn(e.Args...)
		}
	case ErrorLevel:
		if formatted {
			l.Errorf(e.Format, e.Args...)
		} else {
			l.Error(e.Args...)
		}
	case FatalLevel:
		if formatted {
			l.Fatalf(e.Format, e.Args...)
		} else {
			l.Fatal(e.Args...)
		}
	}
}


// ConfigFromViper reads the logger.* keys.
func ConfigFromViper(v *viper.Viper) *Config {
	return &Config{
		LogDir:          v.GetString("logger.log_dir"),
		BaseName:        v.GetString("logger.base_name"),
		Format:          v.GetString("logger.format"),
		Level:           ParseLevel(v.GetString("logger.level")),
		Compress:        v.GetBool("logger.compress"),
		MaxSizeMB:       v.GetInt("logger.max_size_mb"),
		MaxAgeDays:      v.GetInt("logger.max_age_days"),
		MaxBackups:      v.GetInt("logger.max_backups"),
		EnableStdout:    v.GetBool("logger.enable_stdout"),
		EnableWarnFile:  v.GetBool("logger.enable_warn_file"),
		EnableErrorFile: v.GetBool("logger.enable_error_file"),
		Async:           v.GetBool("logger.async"),
		AsyncBufferSize: v.GetInt("logger.async_channel_size"),
	}
}

// InitDefaultLogger builds a zap logger from config and registers it. A nil
// config is read from the global viper instance. The returned function flushes
// buffered output and stops the async worker when Async is set.
func InitDefaultLogger(config *Config) (func(), error) {
	if config == nil {
		config = ConfigFromViper(viper.GetViper())
	}

	baseLogger, err := NewZapLoggerWithConfig(config)
	if err != nil {
		return nil, err
	}

	stop := func() {
		if s, ok := baseLogger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}

	var logger Logger = baseLogger
	if config.Async {
		async := NewAsyncLogger(baseLogger, config.AsyncBufferSize).(*AsyncLogger)
		logger = async
		flush := stop
		stop = func() {
			async.Stop()
			flush()
		}
	}

	AddLogger(logger)
	return stop, nil
}

// AsyncLogger hands events to a background worker. After Stop, calls are
// written synchronously.
type AsyncLogger struct {
	backend  Logger
	channel  chan *LogEvent
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewAsyncLogger(backend Logger, bufferSize int) Logger {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	logger := &AsyncLogger{
		backend:  backend,
		channel:  make(chan *LogEvent, bufferSize),
		stopChan: make(chan struct{}),
	}

	logger.wg.Add(1)
	go logger.processEvents()

	return logger
}

func (l *AsyncLogger) processEvents() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.channel:
			l.handleEvent(event)
		case <-l.stopChan:
			l.flushEvents()
			return
		}
	}
}

func (l *AsyncLogger) handleEvent(event *LogEvent) {
	if event == nil {
		return
	}
	defer releaseLogEvent(event)
	event.dispatch(l.backend)
}

func (l *AsyncLogger) flushEvents() {
	for {
		select {
		case event := <-l.channel:
			l.handleEvent(event)
		default:
			return
		}
	}
}

func (l *AsyncLogger) enqueue(level Level, format string, args []any) {
	event := acquireLogEvent(level, format, args)
	select {
	case <-l.stopChan:
		l.handleEvent(event)
		return
	default:
	}
	select {
	case l.channel <- event:
	case <-l.stopChan:
		l.handleEvent(event)
	}
}

// Stop drains pending events and stops the worker. Safe to call twice.
func (l *AsyncLogger) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
}

func (l *AsyncLogger) Debugf(format string, args ...any) { l.enqueue(DebugLevel, format, args) }
func (l *AsyncLogger) Debug(args ...any)                 { l.enqueue(DebugLevel, "", args) }
func (l *AsyncLogger) Infof(format string, args ...any)  { l.enqueue(InfoLevel, format, args) }
func (l *AsyncLogger) Info(args ...any)                  { l.enqueue(InfoLevel, "", args) }
func (l *AsyncLogger) Warnf(format string, args ...any)  { l.enqueue(WarnLevel, format, args) }
func (l *AsyncLogger) Warn(args ...any)                  { l.enqueue(WarnLevel, "", args) }
func (l *AsyncLogger) Errorf(format string, args ...any) { l.enqueue(ErrorLevel, format, args) }
func (l *AsyncLogger) Error(args ...any)                 { l.enqueue(ErrorLevel, "", args) }

func (l *AsyncLogger) Fatalf(format string, args ...any) {
	l.enqueue(FatalLevel, format, args)
	l.Stop()
}

func (l *AsyncLogger) Fatal(args ...any) {
	l.enqueue(FatalLevel, "", args)
	l.Stop()
}

// emit sends one call to every registered logger. Warnings and above go to
// the fallback when none is registered.
func emit(level Level, format string, args []any) {
	mu.RLock()
	ls := loggers
	mu.RUnlock()

	event := LogEvent{Level: level, Format: format, Args: args}
	if len(ls) == 0 {
		if level >= WarnLevel {
			event.dispatch(fallback)
		}
		return
	}
	for _, l := range ls {
		event.dispatch(l)
	}
}

func Debugf(msg string, fields ...any) { emit(DebugLevel, msg, fields) }
func Debug(fields ...any)              { emit(DebugLevel, "", fields) }
func Infof(msg string, fields ...any)  { emit(InfoLevel, msg, fields) }
func Info(fields ...any)               { emit(InfoLevel, "", fields) }
func Warnf(msg string, fields ...any)  { emit(WarnLevel, msg, fields) }
func Warn(fields ...any)               { emit(WarnLevel, "", fields) }
func Errorf(msg string, fields ...any) { emit(ErrorLevel, msg, fields) }
func Error(fields ...any)              { emit(ErrorLevel, "", fields) }

// Fatalf logs and exits with status 1.
func Fatalf(msg string, fields ...any) {
	emit(FatalLevel, msg, fields)
	os.Exit(1)
}

func Fatal(fields ...any) {
	emit(FatalLevel, "", fields)
	os.Exit(1)
}

func AddLogger(logger ...Logger) {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range logger {
		if l != nil {
			loggers = append(loggers, l)
		}
	}
}

// ResetLoggers drops every registered logger.
func ResetLoggers() {
	mu.Lock()
	loggers = nil
	mu.Unlock()
}
