package logger

import (
	"context"
	"log/slog"
	"time"
)

const maxLoggedBody = 256

// RequestEvent describes one outbound call to the ranking service
type RequestEvent struct {
	RequestID string
	Method    string
	Path      string
	Status    int // 0 when no response was received
	Duration  time.Duration
	Err       error
	Body      string
	Query     string // user-typed search text, redacted in production
}

// RequestLogger records outbound request outcomes
type RequestLogger struct {
	logger *slog.Logger
	env    string
}

// NewRequestLogger creates a new request logger
func NewRequestLogger(logger *slog.Logger, env string) *RequestLogger {
	return &RequestLogger{
		logger: logger,
		env:    env,
	}
}

// LogRequest logs a completed request at debug level and a failed one at warn
func (rl *RequestLogger) LogRequest(ctx context.Context, event RequestEvent) {
	attrs := []slog.Attr{
		slog.String("method", event.Method),
		slog.String("path", event.Path),
		slog.String("duration", event.Duration.String()),
	}

	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.Status != 0 {
		attrs = append(attrs, slog.Int("status", event.Status))
	}
	if event.Query != "" {
		attrs = append(attrs, RedactedAttr("query", event.Query, rl.env))
	}

	if event.Err == nil {
		rl.logger.LogAttrs(ctx, slog.LevelDebug, "api_request", attrs...)
		return
	}

	attrs = append(attrs, slog.Any("error", event.Err))
	if event.Body != "" {
		attrs = append(attrs, slog.String("body", Truncate(event.Body, maxLoggedBody)))
	}
	rl.logger.LogAttrs(ctx, slog.LevelWarn, "api_error", attrs...)
}
