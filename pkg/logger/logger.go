// Package logger configures the process slog logger and carries the
// per-request id through contexts so handler logs can be correlated.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{}

// level is shared by every logger built here so SetLevel applies to all of
// them at once.
var level = new(slog.LevelVar)

// Setup installs the process-wide default logger writing to stdout. An
// unknown level falls back to info.
func Setup(lvl, format string) {
	slog.SetDefault(New(os.Stdout, lvl, format))
}

// New builds a logger for w. format is "json" or "text"; anything else is
// treated as text.
func New(w io.Writer, lvl, format string) *slog.Logger {
	l, err := ParseLevel(lvl)
	if err != nil {
		l = slog.LevelInfo
	}
	level.Set(l)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: l == slog.LevelDebug,
	}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetLevel changes the threshold of every logger built by New.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel maps a config level name to a slog level. The empty string is
// info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// ValidFormat reports whether format names a supported handler.
func ValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case "", "json", "text":
		return true
	}
	return false
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// FromContext returns the default logger tagged with the request id, if ctx
// carries one.
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := RequestID(ctx); id != "" {
		return l.With("request_id", id)
	}
	return l
}
