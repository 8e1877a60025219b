// Package orchestrator is the façade over the scheduler, aggregator, and
// enrichment gateway. It owns the task registration — the three analyzers
// with their deadlines — and is the only entry point front ends consume.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/repolens-dev/repolens/internal/aggregate"
	"github.com/repolens-dev/repolens/internal/analysis"
	"github.com/repolens-dev/repolens/internal/analyzers/performance"
	"github.com/repolens-dev/repolens/internal/analyzers/security"
	"github.com/repolens-dev/repolens/internal/analyzers/structural"
	"github.com/repolens-dev/repolens/internal/enrich"
	"github.com/repolens-dev/repolens/internal/observability"
	"github.com/repolens-dev/repolens/internal/scheduler"
	"github.com/repolens-dev/repolens/internal/snapshot"
)

// Default deadlines. The security analyzer gets extra room because its
// enrichment lookups may spend the gateway's full retry budget.
const (
	DefaultStructuralDeadline  = 30 * time.Second
	DefaultSecurityDeadline    = 60 * time.Second
	DefaultPerformanceDeadline = 30 * time.Second
	DefaultRunTimeout          = 2 * time.Minute
)

// Config holds per-analyzer deadlines and the run-level timeout.
// Zero fields take the package defaults.
type Config struct {
	StructuralDeadline  time.Duration
	SecurityDeadline    time.Duration
	PerformanceDeadline time.Duration
	RunTimeout          time.Duration
}

// withDefaults fills zero fields with package defaults.
func (cfg Config) withDefaults() Config {
	if cfg.StructuralDeadline <= 0 {
		cfg.StructuralDeadline = DefaultStructuralDeadline
	}

	if cfg.SecurityDeadline <= 0 {
		cfg.SecurityDeadline = DefaultSecurityDeadline
	}

	if cfg.PerformanceDeadline <= 0 {
		cfg.PerformanceDeadline = DefaultPerformanceDeadline
	}

	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}

	return cfg
}

// Orchestrator wires the fixed analyzer set to the scheduler and aggregator.
// Stateless between runs: concurrent Runs on shared snapshots are safe.
type Orchestrator struct {
	tasks   []analysis.Task
	sched   *scheduler.Scheduler
	metrics *observability.RunMetrics
	logger  *slog.Logger
}

// Option mutates an Orchestrator during construction.
type Option func(*Orchestrator)

// WithMetrics wires run metrics into the orchestrator and its scheduler.
func WithMetrics(metrics *observability.RunMetrics) Option {
	return func(o *Orchestrator) {
		o.metrics = metrics
		o.sched.Metrics = metrics
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
		o.sched.Logger = logger
	}
}

// New creates an orchestrator with the three analyzers registered in
// canonical order: structural, security, performance. The gateway instance
// is passed in explicitly; there are no process-wide singletons.
func New(gateway *enrich.Gateway, cfg Config, opts ...Option) *Orchestrator {
	cfg = cfg.withDefaults()

	orch := &Orchestrator{
		tasks: []analysis.Task{
			analysis.NewTask(structural.New(), cfg.StructuralDeadline),
			analysis.NewTask(security.New(gateway), cfg.SecurityDeadline),
			analysis.NewTask(performance.New(), cfg.PerformanceDeadline),
		},
		sched:  &scheduler.Scheduler{RunTimeout: cfg.RunTimeout},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(orch)
	}

	return orch
}

// Tasks returns the registered tasks in canonical order.
func (orch *Orchestrator) Tasks() []analysis.Task {
	return orch.tasks
}

// Run executes one full analysis of the snapshot. The only error path is an
// invalid (nil or empty) snapshot; every analyzer fault or timeout is
// contained in the returned report instead.
func (orch *Orchestrator) Run(ctx context.Context, snap *snapshot.Snapshot) (aggregate.Report, error) {
	if snap == nil || snap.Len() == 0 {
		return aggregate.Report{}, fmt.Errorf("run: %w", snapshot.ErrEmptySnapshot)
	}

	if orch.metrics != nil {
		done := orch.metrics.TrackInflight(ctx)
		defer done()
	}

	meta := aggregate.Meta{
		RunID:      uuid.NewString(),
		Repository: snap.Identity(),
		StartedAt:  time.Now().UTC(),
		FileCount:  snap.Len(),
		TotalBytes: snap.TotalSize(),
	}

	orch.logger.Info("analysis run starting",
		"run_id", meta.RunID, "repository", meta.Repository, "files", meta.FileCount)

	outcomes := orch.sched.RunAll(ctx, snap, orch.tasks)

	meta.FinishedAt = time.Now().UTC()
	report := aggregate.Merge(meta, orch.tasks, outcomes)

	if orch.metrics != nil {
		orch.metrics.RecordRun(ctx, string(report.OverallStatus), meta.FinishedAt.Sub(meta.StartedAt))
	}

	orch.logger.Info("analysis run finished",
		"run_id", meta.RunID, "status", report.OverallStatus,
		"elapsed", meta.FinishedAt.Sub(meta.StartedAt))

	return report, nil
}
