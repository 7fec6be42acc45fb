// Package logger provides structured logging using log/slog.
// It sets up a JSON handler with service-level context and carries a
// per-tick cycle ID and loop name through context.Context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

type ctxKey string

const (
	cycleIDKey ctxKey = "cycle_id"
	loopKey    ctxKey = "loop"
)

// Init creates a JSON logger for the service writing to stdout and installs
// it as the slog default. log.Printf output is routed through it as well.
func Init(service string, level slog.Level) *slog.Logger {
	return InitTo(os.Stdout, service, level)
}

// InitTo is Init with an explicit writer.
func InitTo(w io.Writer, service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps debug/info/warn/error to a slog level. Unknown values are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithCycle tags the context with the loop name and a fresh cycle ID.
func WithCycle(ctx context.Context, loop string, ts time.Time) context.Context {
	ctx = context.WithValue(ctx, loopKey, loop)
	return context.WithValue(ctx, cycleIDKey, GenerateCycleID(loop, ts))
}

// CycleID extracts the cycle ID from context. Returns "" if not set.
func CycleID(ctx context.Context) string {
	if v, ok := ctx.Value(cycleIDKey).(string); ok {
		return v
	}
	return ""
}

// Loop extracts the loop name from context. Returns "" if not set.
func Loop(ctx context.Context) string {
	if v, ok := ctx.Value(loopKey).(string); ok {
		return v
	}
	return ""
}

// GenerateCycleID creates a cycle ID from a loop name and timestamp.
// Format: "{loop}-{unixNano}"
func GenerateCycleID(loop string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", loop, ts.UnixNano())
}

// Attrs returns slog attributes for the loop and cycle ID in ctx.
// Usage: slog.Info("msg", logger.Attrs(ctx)...)
func Attrs(ctx context.Context) []any {
	var attrs []any
	if l := Loop(ctx); l != "" {
		attrs = append(attrs, slog.String("loop", l))
	}
	if id := CycleID(ctx); id != "" {
		attrs = append(attrs, slog.String("cycle_id", id))
	}
	return attrs
}
