package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/repolens-dev/repolens/internal/config"
	"github.com/repolens-dev/repolens/internal/observability"
	"github.com/repolens-dev/repolens/internal/server"
)

// ServeCommand holds configuration and flags for the serve command.
type ServeCommand struct {
	configPath string
	addr       string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	sc := &ServeCommand{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long:  "Start the HTTP server with the analyze endpoint, health probe, and Prometheus metrics.",
		Args:  cobra.NoArgs,
		RunE:  sc.run,
	}

	cmd.Flags().StringVarP(&sc.configPath, "config", "c", "", "Config file path (default: .repolens.yaml in CWD or $HOME)")
	cmd.Flags().StringVar(&sc.addr, "addr", "", "Listen address (overrides config)")

	return cmd
}

func (sc *ServeCommand) run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(sc.configPath)
	if err != nil {
		return err
	}

	logger := setupLogging(cfg)

	meter, metricsHandler, err := observability.NewPrometheusMeter()
	if err != nil {
		return err
	}

	metrics, err := observability.NewRunMetrics(meter)
	if err != nil {
		return err
	}

	gateway, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	gateway.Metrics = metrics

	orch := newOrchestrator(cfg, gateway, metrics, logger)

	addr := cfg.Server.Addr
	if sc.addr != "" {
		addr = sc.addr
	}

	srv := server.New(orch, server.Config{Addr: addr}, metricsHandler, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}
