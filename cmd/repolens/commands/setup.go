// Package commands implements CLI command handlers for repolens.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/repolens-dev/repolens/internal/config"
	"github.com/repolens-dev/repolens/internal/enrich"
	"github.com/repolens-dev/repolens/internal/observability"
	"github.com/repolens-dev/repolens/internal/orchestrator"
)

// parseLogLevel maps a config level name to its slog.Level. Unknown names
// should be rejected by config validation before this runs; info is the
// safety net.
func parseLogLevel(name string) slog.Level {
	switch name {
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

// setupLogging configures the process-wide logger from config.
func setupLogging(cfg *config.Config) *slog.Logger {
	return observability.SetupLogging(observability.LogConfig{
		Level: parseLogLevel(cfg.Log.Level),
		JSON:  cfg.Log.JSON,
	})
}

// newGateway assembles the tiered enrichment gateway from config. The live
// tier is wired only when an endpoint is configured and not disabled.
func newGateway(cfg *config.Config, logger *slog.Logger) (*enrich.Gateway, error) {
	dataset, err := enrich.LoadBundledDataset()
	if err != nil {
		return nil, fmt.Errorf("load advisory dataset: %w", err)
	}

	var client enrich.Client
	if cfg.Enrichment.Endpoint != "" && !cfg.Enrichment.Disabled {
		client = enrich.NewHTTPClient(cfg.Enrichment.Endpoint, cfg.Enrichment.APIKey, cfg.Enrichment.RequestTimeout)
	}

	gateway := enrich.NewGateway(client, dataset, enrich.GatewayConfig{
		MaxAttempts:    cfg.Enrichment.MaxAttempts,
		BackoffBase:    cfg.Enrichment.BackoffBase,
		BackoffCeiling: cfg.Enrichment.BackoffCeiling,
	}, logger)

	return gateway, nil
}

// newOrchestrator builds the orchestrator with deadlines from config.
func newOrchestrator(
	cfg *config.Config,
	gateway *enrich.Gateway,
	metrics *observability.RunMetrics,
	logger *slog.Logger,
) *orchestrator.Orchestrator {
	opts := []orchestrator.Option{orchestrator.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, orchestrator.WithMetrics(metrics))
	}

	return orchestrator.New(gateway, orchestrator.Config{
		StructuralDeadline:  cfg.Analysis.StructuralDeadline,
		SecurityDeadline:    cfg.Analysis.SecurityDeadline,
		PerformanceDeadline: cfg.Analysis.PerformanceDeadline,
		RunTimeout:          cfg.Analysis.RunTimeout,
	}, opts...)
}
