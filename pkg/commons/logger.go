// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package commons

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger handed to every component.
// It is a thin contract over zap's SugaredLogger so call sites can use the
// key/value (`Infow`) and printf (`Infof`) families interchangeably.
type Logger interface {
	Level() zapcore.Level

	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
	Fatal(args ...interface{})
	Fatalf(template string, args ...interface{})

	Benchmark(functionName string, duration time.Duration)
	Tracef(ctx context.Context, format string, args ...interface{})
	Sync() error
}

type applicationLogger struct {
	*zap.SugaredLogger
	level zapcore.Level
}

type loggerOptions struct {
	name       string
	level      string
	file       string
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	stdout     bool
}

// Option configures NewApplicationLogger.
type Option func(*loggerOptions)

// Name sets the logger name attached to every entry.
func Name(name string) Option {
	return func(o *loggerOptions) { o.name = name }
}

// Level sets the minimum enabled level ("debug", "info", "warn", "error").
func Level(level string) Option {
	return func(o *loggerOptions) { o.level = level }
}

// EnableFile additionally writes entries to a size-rotated file.
func EnableFile(path string) Option {
	return func(o *loggerOptions) { o.file = path }
}

// DisableStdout stops writing entries to stdout. Useful for the console
// mode where stdout belongs to the interview transcript.
func DisableStdout() Option {
	return func(o *loggerOptions) { o.stdout = false }
}

// NewApplicationLogger builds the zap backed Logger.
func NewApplicationLogger(opts ...Option) (Logger, error) {
	o := &loggerOptions{
		name:       "interview",
		level:      "debug",
		maxSizeMB:  50,
		maxBackups: 5,
		maxAgeDays: 7,
		stdout:     true,
	}
	for _, opt := range opts {
		opt(o)
	}

	level, err := zapcore.ParseLevel(o.level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	var cores []zapcore.Core
	if o.stdout {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}
	if o.file != "" {
		rotating := &lumberjack.Logger{
			Filename:   o.file,
			MaxSize:    o.maxSizeMB,
			MaxBackups: o.maxBackups,
			MaxAge:     o.maxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotating), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)).Named(o.name)
	return &applicationLogger{SugaredLogger: logger.Sugar(), level: level}, nil
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return &applicationLogger{SugaredLogger: zap.NewNop().Sugar(), level: zapcore.FatalLevel}
}

func (l *applicationLogger) Level() zapcore.Level {
	return l.level
}

func (l *applicationLogger) Benchmark(functionName string, duration time.Duration) {
	l.Debugw("benchmark", "function", functionName, "duration_ms", duration.Milliseconds())
}

func (l *applicationLogger) Tracef(ctx context.Context, format string, args ...interface{}) {
	l.Debugf(format, args...)
}
