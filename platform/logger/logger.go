// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey carries the X-Request-ID of an HTTP request.
	RequestIDKey contextKey = "request_id"
	// UserIDKey carries the acting user of a request.
	UserIDKey contextKey = "user_id"
	// RunIDKey carries the ID of the automation pass being executed.
	RunIDKey contextKey = "run_id"
)

// contextKeys are copied onto the logger by WithContext, in this order.
var contextKeys = []contextKey{RequestIDKey, UserIDKey, RunIDKey}

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stdout. Development gets debug level text
// output; every other environment gets JSON at info level.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(env string, w io.Writer) *Logger {
	if strings.EqualFold(env, "development") {
		return &Logger{Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))}
}

// WithContext returns a logger tagged with the request, user and run IDs
// found on ctx. Missing values are skipped.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	var attrs []any
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			attrs = append(attrs, slog.String(string(key), v))
		}
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

// HTTPRequest logs a served request.
func (l *Logger) HTTPRequest(method, route string, status int, latencyMs float64, clientIP string) {
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	l.Log(context.Background(), level, "http_request",
		slog.String("method", method),
		slog.String("route", route),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// RuleFault logs an automation rule that failed inside a dispatch pass.
// The pass continues with the remaining rules.
func (l *Logger) RuleFault(ruleID, trigger string, err error) {
	l.Error("automation_rule_fault",
		slog.String("rule_id", ruleID),
		slog.String("trigger", trigger),
		slog.String("error", err.Error()),
	)
}

// RuleVeto logs a pipeline move rejected by the gate.
func (l *Logger) RuleVeto(ruleID, contactID, from, to, reason string) {
	l.Info("automation_rule_veto",
		slog.String("rule_id", ruleID),
		slog.String("contact_id", contactID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("reason", reason),
	)
}

// TickSkipped logs a periodic job tick dropped because the previous one is
// still running.
func (l *Logger) TickSkipped(job string) {
	l.Warn("tick_skipped", slog.String("job", job))
}

// DatabaseError logs a failed write the caller does not surface.
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs a request rejected by a rate limiter.
func (l *Logger) RateLimitExceeded(clientIP, route string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("route", route),
	)
}
