// Package observability provides OpenTelemetry-based tracing and metrics
// plus structured logging for both repolens front ends (CLI and HTTP server).
package observability

import (
	"log/slog"
	"os"
)

// TracerName is the OTel tracer name used across the analysis pipeline.
const TracerName = "repolens"

// MeterName is the OTel meter name used across the analysis pipeline.
const MeterName = "repolens"

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	// Level is the minimum severity to emit.
	Level slog.Level

	// JSON switches from text to JSON-formatted output.
	JSON bool
}

// SetupLogging installs the default slog handler on stderr and returns it.
func SetupLogging(cfg LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
