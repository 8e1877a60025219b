package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens-dev/repolens/internal/analysis"
	"github.com/repolens-dev/repolens/internal/scheduler"
	"github.com/repolens-dev/repolens/internal/snapshot"
)

const (
	// longDeadline never expires within a test.
	longDeadline = 10 * time.Second

	// shortDeadline expires quickly for timeout tests.
	shortDeadline = 30 * time.Millisecond

	// timeoutGrace is the slack allowed on top of a deadline before the
	// scheduler must have returned.
	timeoutGrace = 500 * time.Millisecond
)

var errBroken = errors.New("broken analyzer")

// fakeAnalyzer is a scripted analyzer for scheduler tests.
type fakeAnalyzer struct {
	name    string
	payload any
	err     error
	delay   time.Duration
	panics  bool
}

func (fa *fakeAnalyzer) Name() string { return fa.name }

func (fa *fakeAnalyzer) Analyze(ctx context.Context, _ *snapshot.Snapshot) (any, error) {
	if fa.panics {
		panic("scripted panic")
	}

	if fa.delay > 0 {
		select {
		case <-time.After(fa.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return fa.payload, fa.err
}

func testSnapshot(t *testing.T) *snapshot.Snapshot {
	t.Helper()

	snap, err := snapshot.FromFiles("/repo/demo", []snapshot.File{
		{Path: "main.go", Content: []byte("package main\n")},
	})
	require.NoError(t, err)

	return snap
}

func TestRunAll_OutcomesInTaskOrder(t *testing.T) {
	t.Parallel()

	sched := &scheduler.Scheduler{}
	tasks := []analysis.Task{
		analysis.NewTask(&fakeAnalyzer{name: "first", payload: 1}, longDeadline),
		analysis.NewTask(&fakeAnalyzer{name: "second", payload: 2}, longDeadline),
		analysis.NewTask(&fakeAnalyzer{name: "third", payload: 3}, longDeadline),
	}

	outcomes := sched.RunAll(context.Background(), testSnapshot(t), tasks)

	require.Len(t, outcomes, 3)

	for i, out := range outcomes {
		assert.True(t, out.OK())
		assert.Equal(t, i+1, out.Payload)
	}
}

func TestRunAll_FailureIsolation(t *testing.T) {
	t.Parallel()

	sched := &scheduler.Scheduler{}
	tasks := []analysis.Task{
		analysis.NewTask(&fakeAnalyzer{name: "ok-a", payload: "a"}, longDeadline),
		analysis.NewTask(&fakeAnalyzer{name: "broken", err: errBroken}, longDeadline),
		analysis.NewTask(&fakeAnalyzer{name: "ok-b", payload: "b"}, longDeadline),
	}

	outcomes := sched.RunAll(context.Background(), testSnapshot(t), tasks)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].OK())
	assert.Equal(t, analysis.StateFailure, outcomes[1].State)
	assert.Equal(t, analysis.FailureInternal, outcomes[1].Kind)
	assert.Contains(t, outcomes[1].Message, "broken analyzer")
	assert.True(t, outcomes[2].OK())
}

func TestRunAll_PanicBecomesInternalFailure(t *testing.T) {
	t.Parallel()

	sched := &scheduler.Scheduler{}
	tasks := []analysis.Task{
		analysis.NewTask(&fakeAnalyzer{name: "panicky", panics: true}, longDeadline),
		analysis.NewTask(&fakeAnalyzer{name: "steady", payload: "ok"}, longDeadline),
	}

	outcomes := sched.RunAll(context.Background(), testSnapshot(t), tasks)

	require.Len(t, outcomes, 2)
	assert.Equal(t, analysis.StateFailure, outcomes[0].State)
	assert.Equal(t, analysis.FailureInternal, outcomes[0].Kind)
	assert.Contains(t, outcomes[0].Message, "panic")
	assert.True(t, outcomes[1].OK())
}

func TestRunAll_DeadlineProducesTimedOut(t *testing.T) {
	t.Parallel()

	sched := &scheduler.Scheduler{}
	tasks := []analysis.Task{
		analysis.NewTask(&fakeAnalyzer{name: "slow", payload: "late", delay: 5 * time.Second}, shortDeadline),
		analysis.NewTask(&fakeAnalyzer{name: "fast", payload: "fast"}, longDeadline),
	}

	started := time.Now()
	outcomes := sched.RunAll(context.Background(), testSnapshot(t), tasks)
	elapsed := time.Since(started)

	require.Len(t, outcomes, 2)
	assert.Equal(t, analysis.StateTimedOut, outcomes[0].State)
	assert.Equal(t, analysis.FailureTimeout, outcomes[0].Kind)
	assert.True(t, outcomes[1].OK())
	assert.Less(t, elapsed, shortDeadline+timeoutGrace)
}

func TestRunAll_RunTimeoutBoundsEveryTask(t *testing.T) {
	t.Parallel()

	sched := &scheduler.Scheduler{RunTimeout: shortDeadline}
	tasks := []analysis.Task{
		analysis.NewTask(&fakeAnalyzer{name: "slow-a", delay: 5 * time.Second}, longDeadline),
		analysis.NewTask(&fakeAnalyzer{name: "slow-b", delay: 5 * time.Second}, longDeadline),
		analysis.NewTask(&fakeAnalyzer{name: "slow-c", delay: 5 * time.Second}, longDeadline),
	}

	started := time.Now()
	outcomes := sched.RunAll(context.Background(), testSnapshot(t), tasks)
	elapsed := time.Since(started)

	require.Len(t, outcomes, 3)

	for _, out := range outcomes {
		assert.Equal(t, analysis.StateTimedOut, out.State)
	}

	assert.Less(t, elapsed, shortDeadline+timeoutGrace)
}

func TestRunAll_ExternalCancellationRecordsTimedOut(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sched := &scheduler.Scheduler{}
	tasks := []analysis.Task{
		analysis.NewTask(&fakeAnalyzer{name: "interrupted", delay: 5 * time.Second}, longDeadline),
	}

	// Whether the analyzer's context.Canceled result or the collector's
	// synthetic outcome wins the race, the label is the same.
	outcomes := sched.RunAll(ctx, testSnapshot(t), tasks)

	require.Len(t, outcomes, 1)
	assert.Equal(t, analysis.StateTimedOut, outcomes[0].State)
	assert.Equal(t, analysis.FailureTimeout, outcomes[0].Kind)
}

func TestRunAll_ElapsedRecorded(t *testing.T) {
	t.Parallel()

	sched := &scheduler.Scheduler{}
	tasks := []analysis.Task{
		analysis.NewTask(&fakeAnalyzer{name: "timed", payload: "x", delay: 10 * time.Millisecond}, longDeadline),
	}

	outcomes := sched.RunAll(context.Background(), testSnapshot(t), tasks)

	require.Len(t, outcomes, 1)
	assert.GreaterOrEqual(t, outcomes[0].Elapsed, 10*time.Millisecond)
}
