package aggregate_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens-dev/repolens/internal/aggregate"
	"github.com/repolens-dev/repolens/internal/analysis"
	"github.com/repolens-dev/repolens/internal/snapshot"
)

const mergeTestDeadline = time.Minute

type stubAnalyzer struct {
	name string
}

func (sa *stubAnalyzer) Name() string { return sa.name }

func (sa *stubAnalyzer) Analyze(_ context.Context, _ *snapshot.Snapshot) (any, error) {
	return nil, nil
}

func tasksNamed(names ...string) []analysis.Task {
	tasks := make([]analysis.Task, 0, len(names))
	for _, name := range names {
		tasks = append(tasks, analysis.NewTask(&stubAnalyzer{name: name}, mergeTestDeadline))
	}

	return tasks
}

func TestMerge_CanonicalOrder(t *testing.T) {
	t.Parallel()

	tasks := tasksNamed("structural", "security", "performance")
	outcomes := []analysis.Outcome{
		analysis.Success("s"),
		analysis.Success("sec"),
		analysis.Success("perf"),
	}

	rep := aggregate.Merge(aggregate.Meta{RunID: "r1"}, tasks, outcomes)

	require.Len(t, rep.Results, 3)
	assert.Equal(t, "structural", rep.Results[0].Analyzer)
	assert.Equal(t, "security", rep.Results[1].Analyzer)
	assert.Equal(t, "performance", rep.Results[2].Analyzer)
	assert.Equal(t, aggregate.StatusHealthy, rep.OverallStatus)
}

func TestMerge_MissingOutcomeBecomesInternalFailure(t *testing.T) {
	t.Parallel()

	tasks := tasksNamed("structural", "security")
	outcomes := []analysis.Outcome{analysis.Success("s")}

	rep := aggregate.Merge(aggregate.Meta{}, tasks, outcomes)

	require.Len(t, rep.Results, 2)
	assert.True(t, rep.Results[0].Outcome.OK())
	assert.Equal(t, analysis.StateFailure, rep.Results[1].Outcome.State)
	assert.Equal(t, analysis.FailureInternal, rep.Results[1].Outcome.Kind)
	assert.Equal(t, aggregate.StatusDegraded, rep.OverallStatus)
}

func TestMerge_StatusDerivation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		outcomes []analysis.Outcome
		want     aggregate.Status
	}{
		{
			name: "all succeed",
			outcomes: []analysis.Outcome{
				analysis.Success(1), analysis.Success(2),
			},
			want: aggregate.StatusHealthy,
		},
		{
			name: "mixed",
			outcomes: []analysis.Outcome{
				analysis.Success(1), analysis.Failure(analysis.FailureInternal, "x"),
			},
			want: aggregate.StatusDegraded,
		},
		{
			name: "timeout counts as not succeeded",
			outcomes: []analysis.Outcome{
				analysis.Success(1), analysis.TimedOut(),
			},
			want: aggregate.StatusDegraded,
		},
		{
			name: "none succeed",
			outcomes: []analysis.Outcome{
				analysis.TimedOut(), analysis.Failure(analysis.FailureInternal, "x"),
			},
			want: aggregate.StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rep := aggregate.Merge(aggregate.Meta{}, tasksNamed("a", "b"), tt.outcomes)

			assert.Equal(t, tt.want, rep.OverallStatus)
		})
	}
}

func TestReport_Outcome(t *testing.T) {
	t.Parallel()

	rep := aggregate.Merge(aggregate.Meta{}, tasksNamed("structural"), []analysis.Outcome{analysis.Success("payload")})

	out, ok := rep.Outcome("structural")
	require.True(t, ok)
	assert.Equal(t, "payload", out.Payload)

	_, ok = rep.Outcome("missing")
	assert.False(t, ok)
}
