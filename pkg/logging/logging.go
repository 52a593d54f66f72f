// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logging.Setup()                          // level from LOG_LEVEL env
//	logging.SetupWithLevel(slog.LevelDebug)  // explicit level override
//	closer := logging.SetupFile(level, path) // also write JSON to a rotated file
//
// Environment variables:
//
//	LOG_LEVEL: debug, info, warn, error (default: info)
//	LOG_FILE:  optional path of a size-rotated JSON log
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures colored logging at the level specified by LOG_LEVEL env var
// (default: INFO), adding the LOG_FILE sink when set.
func Setup() io.Closer {
	return SetupFile(ParseLevel(os.Getenv("LOG_LEVEL")), os.Getenv("LOG_FILE"))
}

// SetupWithLevel configures colored logging at the given level.
func SetupWithLevel(level slog.Level) {
	slog.SetDefault(slog.New(consoleHandler(os.Stderr, level)))
}

// SetupFile configures colored logging on stderr and, when path is not
// empty, JSON records in a rotating file. Close the result on shutdown.
func SetupFile(level slog.Level, path string) io.Closer {
	if path == "" {
		SetupWithLevel(level)
		return nopCloser{}
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	slog.SetDefault(slog.New(fanout{
		consoleHandler(os.Stderr, level),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	}))
	return file
}

func consoleHandler(w io.Writer, level slog.Level) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
	})
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
