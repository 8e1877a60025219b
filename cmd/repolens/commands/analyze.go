package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/repolens-dev/repolens/internal/aggregate"
	"github.com/repolens-dev/repolens/internal/config"
	"github.com/repolens-dev/repolens/internal/report"
	"github.com/repolens-dev/repolens/internal/snapshot"
)

// reportBaseName is the file name (without extension) for written reports.
const reportBaseName = "repolens-report"

// AnalyzeCommand holds configuration and flags for the analyze command.
type AnalyzeCommand struct {
	configPath string
	path       string
	formats    []string
	outputDir  string
	timeout    time.Duration
	noColor    bool
	jsonOut    bool
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	ac := &AnalyzeCommand{}

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze a repository snapshot",
		Long:  "Run the structural, security, and performance analyzers over a local repository and render the aggregated report.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  ac.run,
	}

	cmd.Flags().StringVarP(&ac.configPath, "config", "c", "", "Config file path (default: .repolens.yaml in CWD or $HOME)")
	cmd.Flags().StringVarP(&ac.path, "path", "p", ".", "Repository path to analyze")
	cmd.Flags().StringSliceVarP(&ac.formats, "formats", "f", nil, "Report formats to write (json, md, html, text)")
	cmd.Flags().StringVarP(&ac.outputDir, "output", "o", "", "Directory for written report files")
	cmd.Flags().DurationVar(&ac.timeout, "timeout", 0, "Run-level timeout (overrides config)")
	cmd.Flags().BoolVar(&ac.noColor, "no-color", false, "Disable colored console output")
	cmd.Flags().BoolVar(&ac.jsonOut, "json", false, "Print the raw JSON report to stdout instead of the console table")

	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(ac.configPath)
	if err != nil {
		return err
	}

	logger := setupLogging(cfg)

	path := ac.path
	if len(args) > 0 {
		path = args[0]
	}

	snap, err := snapshot.Load(path)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	gateway, err := newGateway(cfg, logger)
	if err != nil {
		return err
	}

	if ac.timeout > 0 {
		cfg.Analysis.RunTimeout = ac.timeout
	}

	orch := newOrchestrator(cfg, gateway, nil, logger)

	rep, err := orch.Run(cmd.Context(), snap)
	if err != nil {
		return err
	}

	if ac.jsonOut {
		err = report.Render(cmd.OutOrStdout(), report.FormatJSON, &rep)
	} else {
		err = report.RenderConsole(cmd.OutOrStdout(), &rep, !ac.noColor)
	}

	if err != nil {
		return err
	}

	return ac.writeReports(cmd, cfg, &rep)
}

// writeReports writes the configured formats to disk. CLI flags override the
// config file; an empty output directory with no flag means no files.
func (ac *AnalyzeCommand) writeReports(cmd *cobra.Command, cfg *config.Config, rep *aggregate.Report) error {
	formats := ac.formats
	outputDir := ac.outputDir

	if len(formats) == 0 {
		formats = cfg.Report.Formats
	}

	if outputDir == "" {
		outputDir = cfg.Report.OutputDir
	}

	if len(formats) == 0 || outputDir == "" {
		return nil
	}

	written, err := report.WriteFiles(filepath.Join(outputDir, reportBaseName), rep, formats)
	if err != nil {
		return fmt.Errorf("write reports: %w", err)
	}

	for _, path := range written {
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", path)
	}

	return nil
}
