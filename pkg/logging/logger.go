// Copyright (C) 2025 Lantern ML (maintainers@lanternml.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for graphprof components.
//
// The package is a thin layer over the standard library slog package.
// Library code (the profiler core) takes a *Logger and defaults to Nop(),
// so embedding the profiler in an execution engine never forces log output;
// the CLI wires a real logger at startup.
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("report built", "subgraph", name, "items", n)
//
// # Thread Safety
//
// Logger is safe for concurrent use; the underlying slog.Logger is
// thread-safe and Logger itself is immutable after construction.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Level represents log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for recoverable, unexpected situations.
	LevelWarn

	// LevelError is for operation failures.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel bridges Level to the standard library.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures Logger behavior. The zero value logs Info and above
// to stderr in text format.
type Config struct {
	// Level sets the minimum log level. Messages below it are discarded.
	Level Level

	// Service identifies the component generating logs. When set it is
	// attached to every entry as the "service" attribute.
	Service string

	// JSON switches output to JSON objects instead of human-readable text.
	JSON bool

	// Output overrides the destination. Default: os.Stderr.
	// Useful in tests to capture output.
	Output io.Writer
}

// Logger provides structured logging.
type Logger struct {
	slog *slog.Logger
}

// New creates a Logger from the given configuration.
func New(config Config) *Logger {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	return &Logger{slog: slog.New(handler)}
}

// Default returns a logger writing Info+ text to stderr with the
// "graphprof" service attribute.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "graphprof"})
}

// Nop returns a logger that discards everything. Library entry points use
// it when the caller supplies no logger.
func Nop() *Logger {
	return New(Config{Level: LevelError, Output: io.Discard})
}

// Debug logs a message at Debug level with key-value attributes.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs a message at Info level with key-value attributes.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs a message at Warn level with key-value attributes.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs a message at Error level with key-value attributes.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a new Logger that includes the given attributes in every
// entry. The parent logger is not modified.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Slog returns the underlying slog.Logger for features not exposed here.
func (l *Logger) Slog() *slog.Logger { return l.slog }
