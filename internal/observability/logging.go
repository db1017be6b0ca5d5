// Package observability provides structured logging context and build
// metrics for the stub pipeline.
package observability

import (
	"context"
	"log/slog"
)

// LogContext holds the structured logging fields that travel with a build.
type LogContext struct {
	BuildID string
	Repo    string
	Stage   string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithBuildID adds a build session ID to the context.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	lc := extractLogContext(ctx)
	lc.BuildID = buildID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithRepo adds the repository under build to the context.
func WithRepo(ctx context.Context, repo string) context.Context {
	lc := extractLogContext(ctx)
	lc.Repo = repo
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := []slog.Attr{}

	if lc.BuildID != "" {
		attrs = append(attrs, slog.String("build.id", lc.BuildID))
	}
	if lc.Repo != "" {
		attrs = append(attrs, slog.String("repo", lc.Repo))
	}
	if lc.Stage != "" {
		attrs = append(attrs, slog.String("stage", lc.Stage))
	}
	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelInfo, msg, append(getLogAttrs(ctx), attrs...)...)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelWarn, msg, append(getLogAttrs(ctx), attrs...)...)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelError, msg, append(getLogAttrs(ctx), attrs...)...)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	slog.LogAttrs(ctx, slog.LevelDebug, msg, append(getLogAttrs(ctx), attrs...)...)
}
