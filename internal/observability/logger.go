// Package observability centralizes structured logging, tracing, and
// metrics setup, grounded in the teacher's shared-entity/observability
// package: a slog JSON handler as the global default logger, and an
// otlptracegrpc-backed tracer provider.
package observability

import (
	"log/slog"
	"os"
)

// InitLogger sets the process-wide default logger to structured JSON on
// stdout, the same shape the teacher's InitLogger uses.
func InitLogger(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
