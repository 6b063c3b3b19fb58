// Package logger provides wrappers around slog.
package logger

import (
	"context"
	"io"

	"golang.org/x/exp/slog"
)

type logKeyType struct{}

var logKey logKeyType

// New returns a text logger writing to w. verbose enables debug records.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// For returns the logger stored in ctx, or the default logger.
func For(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(logKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// SetContext returns a copy of ctx carrying l.
func SetContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, logKey, l)
}
