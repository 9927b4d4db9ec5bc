// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for paraspace binaries.
//
// Logs go to stderr by default (text, or JSON with Config.JSON) and
// optionally to a daily JSON file under Config.LogDir:
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "~/.paraspace/logs",
//	    Service: "cli",
//	})
//	defer logger.Close()
//
// Library packages take a *slog.Logger; pass logger.Slog() to them.
//
// This package does NOT redact anything. Problem documents may contain
// customer names; log counts and identifiers, not payloads.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is a slog level. The named levels below are the ones paraspace uses.
type Level = slog.Level

const (
	// LevelDebug is for search progress and other verbose output.
	LevelDebug = slog.LevelDebug

	// LevelInfo is for solve start and completion, server lifecycle.
	LevelInfo = slog.LevelInfo

	// LevelWarn is for rejected input and degraded operation.
	LevelWarn = slog.LevelWarn

	// LevelError is for failed operations.
	LevelError = slog.LevelError
)

// ParseLevel parses a level name, ignoring case. "warning" is accepted for Warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Config configures the Logger. The zero value logs Info+ to stderr as text.
type Config struct {
	// Level sets the minimum log level.
	Level Level

	// LogDir enables file logging to "{Service}_{YYYY-MM-DD}.log" in this
	// directory, always as JSON. "~" expands to the home directory.
	LogDir string

	// Service is added to every entry as the "service" attribute.
	Service string

	// JSON switches the console output to JSON.
	JSON bool

	// Quiet disables console output.
	Quiet bool

	// Writer replaces stderr as the console destination.
	Writer io.Writer
}

// Logger is a slog.Logger with an optional log file.
//
// Only the Logger returned by New owns the file. Loggers derived with With
// write to it but Close on them is a no-op.
//
// Thread Safety: Safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	file *logFile
}

// New creates a Logger.
//
// Description:
//
//	Builds one handler per destination and fans records out to all of
//	them. A log directory that cannot be created or opened is skipped;
//	logging never fails the caller.
//
// Outputs:
//   - *Logger: Ready for use. Close it when LogDir is set.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level}
	var sinks fanout

	if !config.Quiet {
		console := config.Writer
		if console == nil {
			console = os.Stderr
		}
		if config.JSON {
			sinks = append(sinks, slog.NewJSONHandler(console, opts))
		} else {
			sinks = append(sinks, slog.NewTextHandler(console, opts))
		}
	}

	logger := &Logger{}
	if config.LogDir != "" {
		if f := openLogFile(expandPath(config.LogDir), config.Service); f != nil {
			logger.file = f
			sinks = append(sinks, slog.NewJSONHandler(f.f, opts))
		}
	}

	var handler slog.Handler
	switch len(sinks) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = sinks[0]
	default:
		handler = sinks
	}
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Default returns an Info logger writing text to stderr.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "paraspace"})
}

// Debug logs at Debug level.
func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }

// Info logs at Info level.
func (l *Logger) Info(msg string, args ...any) { l.slog.Info(msg, args...) }

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, args ...any) { l.slog.Warn(msg, args...) }

// Error logs at Error level.
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a Logger that adds args to every entry. The parent is
// unchanged and keeps ownership of the log file.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...)}
}

// Slog returns the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close syncs and closes the log file owned by l. It is safe to call more
// than once.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.close()
}

// logFile is a daily log file closed at most once.
type logFile struct {
	mu sync.Mutex
	f  *os.File
}

func openLogFile(dir, service string) *logFile {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil
	}
	if service == "" {
		service = "paraspace"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil
	}
	return &logFile{f: f}
}

func (lf *logFile) close() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.f == nil {
		return nil
	}
	f := lf.f
	lf.f = nil
	return errors.Join(wrap("sync log file", f.Sync()), wrap("close log file", f.Close()))
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// fanout sends each record to every handler enabled for its level.
type fanout []slog.Handler

func (fo fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range fo {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (fo fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range fo {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (fo fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return fo.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (fo fanout) WithGroup(name string) slog.Handler {
	return fo.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (fo fanout) derive(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(fo))
	for i, h := range fo {
		out[i] = fn(h)
	}
	return out
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
