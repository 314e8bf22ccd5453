// Package ctxlog carries a *slog.Logger through context.Context.
package ctxlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type key struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, key{}, logger)
}

// FromContext returns the logger stored in ctx, or one that discards
// everything when none was stored.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(key{}).(*slog.Logger); ok {
			return l
		}
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New builds a logger writing to w. format is "text" or "json".
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", format)
}
