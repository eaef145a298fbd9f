// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application-wide structured logger. It is usable before
// InitLogger runs and is replaced by it.
var Logger *slog.Logger

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys read by the context-aware handler.
const (
	RequestIDKey LogContextKey = "request_id"
	UserIDKey    LogContextKey = "user_id"
	TraceIDKey   LogContextKey = "trace_id"
)

func init() {
	Logger = slog.New(&ctxHandler{slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})})
}

// ctxHandler is a slog.Handler that adds context values to the log record.
type ctxHandler struct {
	slog.Handler
}

// Handle adds context values to the record before passing it to the underlying handler.
func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok && rid != "" {
		r.AddAttrs(slog.String("request_id", rid))
	}
	if uid, ok := ctx.Value(UserIDKey).(uint); ok && uid != 0 {
		r.AddAttrs(slog.Any("user_id", uid))
	}
	if tid, ok := ctx.Value(TraceIDKey).(string); ok && tid != "" {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// LoggingConfig controls the output of InitLogger.
type LoggingConfig struct {
	Env        string
	Level      string
	Format     string // "json" or "text"; empty picks json in production
	File       string // optional rotating file sink
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// InitLogger builds the global logger. The returned closer flushes the
// rotating file sink, if one was configured.
func InitLogger(cfg LoggingConfig) io.Closer {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	format := cfg.Format
	if format == "" {
		format = "text"
		if cfg.Env == "production" || cfg.Env == "prod" {
			format = "json"
		}
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	Logger = slog.New(&ctxHandler{handler})
	slog.SetDefault(Logger)
	return closer
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// MutationLogger records successful writes for one resource type.
type MutationLogger struct {
	resource string
}

// NewMutationLogger creates a MutationLogger for the given resource.
func NewMutationLogger(resource string) *MutationLogger {
	return &MutationLogger{resource: resource}
}

// LogCreate logs a create operation.
func (l *MutationLogger) LogCreate(ctx context.Context, attrs ...any) {
	l.log(ctx, "create", attrs)
}

// LogUpdate logs an update operation.
func (l *MutationLogger) LogUpdate(ctx context.Context, attrs ...any) {
	l.log(ctx, "update", attrs)
}

// LogDelete logs a delete operation.
func (l *MutationLogger) LogDelete(ctx context.Context, attrs ...any) {
	l.log(ctx, "delete", attrs)
}

func (l *MutationLogger) log(ctx context.Context, op string, attrs []any) {
	base := []any{
		slog.String("resource", l.resource),
		slog.String("operation", op),
	}
	Logger.InfoContext(ctx, "resource "+op, append(base, attrs...)...)
}
