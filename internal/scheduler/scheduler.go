// Package scheduler runs a fixed set of independent analyzer tasks
// concurrently, enforcing per-task deadlines and a run-level timeout.
// One task's fault never terminates its siblings or the scheduler.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/repolens-dev/repolens/internal/analysis"
	"github.com/repolens-dev/repolens/internal/observability"
	"github.com/repolens-dev/repolens/internal/snapshot"
)

// Scheduler fans analyzer tasks out to goroutines and collects exactly one
// outcome per task. Zero value is usable; fields tune behavior.
type Scheduler struct {
	// RunTimeout bounds the whole fan-out. When it expires, every
	// unfinished task is force-recorded as timed out and RunAll returns
	// immediately. Zero disables the run-level bound (per-task deadlines
	// still apply).
	RunTimeout time.Duration

	// Tracer is the OTel tracer for run and per-task spans.
	// When nil, falls back to the package tracer.
	Tracer trace.Tracer

	// Metrics, when set, receives per-task duration observations.
	Metrics *observability.RunMetrics

	// Logger, when nil, defaults to slog.Default.
	Logger *slog.Logger
}

// tracer returns the configured tracer, falling back to the global provider.
func (sched *Scheduler) tracer() trace.Tracer {
	if sched.Tracer != nil {
		return sched.Tracer
	}

	return observability.Tracer()
}

// logger returns the configured logger, falling back to the default.
func (sched *Scheduler) logger() *slog.Logger {
	if sched.Logger != nil {
		return sched.Logger
	}

	return slog.Default()
}

// RunAll executes every task concurrently against the snapshot and returns
// one outcome per task, in task order. It never returns an error: faults
// and missed deadlines are captured in the corresponding outcome.
//
// Cancellation is advisory. A task whose deadline expires is abandoned —
// its result channel is buffered so the goroutine can deliver and exit,
// but the scheduler never awaits it a second time.
func (sched *Scheduler) RunAll(ctx context.Context, snap *snapshot.Snapshot, tasks []analysis.Task) []analysis.Outcome {
	ctx, span := sched.tracer().Start(ctx, "repolens.run",
		trace.WithAttributes(
			attribute.Int("run.tasks", len(tasks)),
			attribute.Int("run.files", snap.Len()),
		))
	defer span.End()

	if sched.RunTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, sched.RunTimeout)
		defer cancel()
	}

	results := make([]chan analysis.Outcome, len(tasks))
	taskCtxs := make([]context.Context, len(tasks))
	started := time.Now()

	for i, task := range tasks {
		// Buffer of one: an abandoned goroutine can always deliver its
		// late outcome and exit without anyone reading it.
		results[i] = make(chan analysis.Outcome, 1)

		taskCtx, cancel := context.WithTimeout(ctx, task.Deadline)
		defer cancel()

		taskCtxs[i] = taskCtx

		go sched.execute(taskCtx, snap, task, results[i])
	}

	outcomes := make([]analysis.Outcome, len(tasks))

	for i, task := range tasks {
		outcomes[i] = sched.collect(taskCtxs[i], task, results[i], started)
		sched.recordTask(ctx, task, outcomes[i])
	}

	return outcomes
}

// collect waits for one task's outcome or its deadline, whichever comes
// first. A result that raced the deadline is still preferred over a
// synthetic timeout.
func (sched *Scheduler) collect(taskCtx context.Context, task analysis.Task, result <-chan analysis.Outcome, started time.Time) analysis.Outcome {
	select {
	case out := <-result:
		return out
	case <-taskCtx.Done():
	}

	select {
	case out := <-result:
		return out
	default:
	}

	sched.logger().Warn("analyzer abandoned", "analyzer", task.Name, "deadline", task.Deadline)

	out := analysis.TimedOut()
	out.Elapsed = time.Since(started)

	return out
}

// execute runs one analyzer inside its own span, converting panics and
// errors into outcomes. Always delivers exactly one outcome.
func (sched *Scheduler) execute(ctx context.Context, snap *snapshot.Snapshot, task analysis.Task, result chan<- analysis.Outcome) {
	_, span := sched.tracer().Start(ctx, "repolens.analyzer."+task.Name)

	started := time.Now()

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		panicErr := fmt.Errorf("analyzer panic: %v", r)
		observability.RecordSpanError(span, panicErr)
		span.End()

		out := analysis.Failure(analysis.FailureInternal, panicErr.Error())
		out.Elapsed = time.Since(started)
		result <- out
	}()

	payload, err := task.Analyzer.Analyze(ctx, snap)
	elapsed := time.Since(started)

	var out analysis.Outcome

	switch {
	case err == nil:
		out = analysis.Success(payload)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// External cancellation classifies like a missed deadline, matching
		// the synthetic outcome collect records when it wins the same race.
		out = analysis.TimedOut()
		observability.RecordSpanError(span, err)
	default:
		out = analysis.Failure(analysis.FailureInternal, err.Error())
		observability.RecordSpanError(span, err)
	}

	out.Elapsed = elapsed

	span.End()

	result <- out
}

// recordTask emits the per-task metric observation when metrics are wired.
func (sched *Scheduler) recordTask(ctx context.Context, task analysis.Task, out analysis.Outcome) {
	if sched.Metrics == nil {
		return
	}

	sched.Metrics.RecordTask(ctx, task.Name, string(out.State), out.Elapsed)
}
