// Package log configures the process-wide zerolog logger and adds trace
// correlation for handlers running under OpenTelemetry instrumentation.
package log

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Setup initializes the global logger. pretty switches to the human console
// writer for local development.
func Setup(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	zlog.Logger = logger.Level(lvl).With().Timestamp().Logger()
}

// Ctx returns a logger carrying trace_id and span_id when ctx holds a valid
// span, so service logs line up with traces.
func Ctx(ctx context.Context) zerolog.Logger {
	logger := zlog.Logger
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}
	return logger
}
