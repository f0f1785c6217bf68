package observability

import (
	"context"
	"log/slog"
	"os"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// InitLogger configures the process-wide slog default. Level is one of
// debug, info, warn or error; format is json or text. Source locations
// are attached at debug level.
func InitLogger(level, format string) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: level == "debug",
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// FromContext returns the default logger with the chi request id
// attached when the context carries one. Request-scoped handler logging
// goes through here so log lines can be correlated with access logs.
func FromContext(ctx context.Context) *slog.Logger {
	if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
		return slog.Default().With(slog.String("request_id", reqID))
	}
	return slog.Default()
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
