// Package aggregate merges per-analyzer outcomes into one deterministic
// report. Merge is total over its inputs: whatever subset of analyzers
// completed, the report has exactly one entry per registered task, in
// canonical task order rather than completion order.
package aggregate

import (
	"time"

	"github.com/repolens-dev/repolens/internal/analysis"
)

// Status is the overall health of one analysis run.
type Status string

const (
	// StatusHealthy means every analyzer succeeded.
	StatusHealthy Status = "healthy"

	// StatusDegraded means at least one analyzer succeeded and at least one
	// did not. A degraded report still carries real findings and must be
	// surfaced distinctly from healthy, never upgraded.
	StatusDegraded Status = "degraded"

	// StatusFailed means no analyzer succeeded.
	StatusFailed Status = "failed"
)

// Meta describes one run: identity, timing, and snapshot shape.
type Meta struct {
	RunID      string    `json:"run_id"`
	Repository string    `json:"repository"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	FileCount  int       `json:"file_count"`
	TotalBytes int64     `json:"total_bytes"`
}

// Entry is one analyzer's slot in the report. Entries appear in canonical
// task order so two runs over the same snapshot diff cleanly.
type Entry struct {
	Analyzer string           `json:"analyzer"`
	Outcome  analysis.Outcome `json:"outcome"`
}

// Report is the aggregated result of one run. It is a stable, serializable
// value: field names and nesting are a compatibility surface for renderers
// and API consumers.
type Report struct {
	Meta          Meta    `json:"metadata"`
	Results       []Entry `json:"results"`
	OverallStatus Status  `json:"overall_status"`
}

// Outcome returns the outcome recorded for the named analyzer.
func (r *Report) Outcome(name string) (analysis.Outcome, bool) {
	for _, entry := range r.Results {
		if entry.Analyzer == name {
			return entry.Outcome, true
		}
	}

	return analysis.Outcome{}, false
}

// Merge builds the report for one run. outcomes[i] corresponds to tasks[i];
// a missing or unset outcome for a registered task becomes an internal
// failure entry rather than an error, keeping aggregation total.
func Merge(meta Meta, tasks []analysis.Task, outcomes []analysis.Outcome) Report {
	results := make([]Entry, 0, len(tasks))

	for i, task := range tasks {
		out := analysis.Failure(analysis.FailureInternal, "missing outcome")
		if i < len(outcomes) && outcomes[i].State != "" {
			out = outcomes[i]
		}

		results = append(results, Entry{Analyzer: task.Name, Outcome: out})
	}

	return Report{
		Meta:          meta,
		Results:       results,
		OverallStatus: deriveStatus(results),
	}
}

// deriveStatus folds entry states into the overall run status.
func deriveStatus(results []Entry) Status {
	var succeeded, failed int

	for _, entry := range results {
		if entry.Outcome.OK() {
			succeeded++
		} else {
			failed++
		}
	}

	switch {
	case failed == 0:
		return StatusHealthy
	case succeeded > 0:
		return StatusDegraded
	default:
		return StatusFailed
	}
}
