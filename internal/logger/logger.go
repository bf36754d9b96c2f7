// Package logger configures the slog logger shared by the CLI and the ledger node.
//
// In the dev environment logs are written with the tint handler (coloured, human readable),
// everywhere else as JSON. Request handlers get a request-scoped logger from the context
// (see ContextRequestLogger) so that every line carries the request id.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// LevelNone disables logging when used as the handler level.
const LevelNone = slog.Level(100)

// ParseLogLevel maps a LOG_LEVEL value to a slog level. Unknown values default to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "off":
		return LevelNone
	default:
		return slog.LevelInfo
	}
}

// InitLogger creates the application logger and installs it as the slog default.
func InitLogger(level slog.Level, environment string) *slog.Logger {
	return initLogger(os.Stderr, level, environment)
}

func initLogger(w io.Writer, level slog.Level, environment string) *slog.Logger {
	var handler slog.Handler
	switch {
	case level >= LevelNone:
		handler = slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelNone})
	case environment == "dev":
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	default:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

type contextKey struct{}

// requestLog holds the request-scoped logger and the attributes collected while the
// request is handled. The attributes are written on the final request log line.
type requestLog struct {
	logger *slog.Logger

	mu    sync.Mutex
	attrs []slog.Attr
}

// ContextWithLogger returns a copy of ctx carrying l as the request logger.
func ContextWithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, &requestLog{logger: l})
}

// ContextRequestLogger returns the request logger from ctx, or the default logger.
func ContextRequestLogger(ctx context.Context) *slog.Logger {
	if rl, ok := ctx.Value(contextKey{}).(*requestLog); ok && rl.logger != nil {
		return rl.logger
	}
	return slog.Default()
}

// ContextWithLogAttrs records attributes to be included in the final request log line.
// It is a no-op when ctx carries no request logger.
func ContextWithLogAttrs(ctx context.Context, attrs ...slog.Attr) {
	rl, ok := ctx.Value(contextKey{}).(*requestLog)
	if !ok {
		return
	}
	rl.mu.Lock()
	rl.attrs = append(rl.attrs, attrs...)
	rl.mu.Unlock()
}

// ContextLogAttrs returns the attributes recorded with ContextWithLogAttrs.
func ContextLogAttrs(ctx context.Context) []slog.Attr {
	rl, ok := ctx.Value(contextKey{}).(*requestLog)
	if !ok {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return append([]slog.Attr(nil), rl.attrs...)
}
