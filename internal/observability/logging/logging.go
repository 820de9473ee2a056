// Package logging configures the service's slog logger and carries request
// scoped fields (request id, asset public id) through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"netrasarthi-media/internal/observability/metrics"
)

// Config selects the level and output format. Format is "json" (default) or
// "text"; Writer defaults to stdout.
type Config struct {
	Level  string
	Format string
	Writer io.Writer
}

// Init builds a logger from cfg and installs it as the slog default.
func Init(cfg Config) *slog.Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}
	options := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var logger *slog.Logger
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "text") {
		logger = slog.New(slog.NewTextHandler(writer, options))
	} else {
		logger = slog.New(slog.NewJSONHandler(writer, options))
	}
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
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

// WithComponent tags logger with a component name. A nil logger stays nil.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With("component", component)
}

type contextKey int

const (
	requestIDKey contextKey = iota
	publicIDKey
	loggerKey
)

// ContextWithRequestID stores a non-empty request ID on the context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, trimmed)
}

func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

// ContextWithPublicID records the asset a request operates on.
func ContextWithPublicID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, publicIDKey, id)
}

func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored on ctx, or fallback (then the slog
// default), tagged with the request and asset IDs ctx carries.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	logger := fallback
	if ctx != nil {
		if stored, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
			logger = stored
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return annotate(ctx, logger)
}

func annotate(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if requestID, ok := stringValue(ctx, requestIDKey); ok {
		logger = logger.With("request_id", requestID)
	}
	if publicID, ok := stringValue(ctx, publicIDKey); ok {
		logger = logger.With("public_id", publicID)
	}
	return logger
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// RequestLogger logs one line per request. Server errors are logged at warn.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := metrics.NewResponseRecorder(w)
			start := time.Now()
			next.ServeHTTP(recorder, r)

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					attrs = append(attrs, "route", pattern)
				}
			}

			level := slog.LevelInfo
			if recorder.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			annotate(r.Context(), logger).Log(r.Context(), level, "request completed", attrs...)
		})
	}
}
