// Package analysis defines the core contracts shared by the scheduler,
// aggregator, and analyzer implementations: the Analyzer interface, the
// per-run Outcome union, and the failure taxonomy.
package analysis

import (
	"context"
	"time"

	"github.com/repolens-dev/repolens/internal/snapshot"
)

// FailureKind classifies why an analyzer run did not produce a payload.
type FailureKind string

const (
	// FailureInternal is an unexpected fault inside a task (panic or error).
	FailureInternal FailureKind = "internal"

	// FailureTimeout is a deadline exceeded on a task or on the whole run.
	FailureTimeout FailureKind = "timeout"

	// FailureExternalUnavailable is an unreachable enrichment backend.
	// It is absorbed by the enrichment tiers and never surfaces as a task
	// failure on its own.
	FailureExternalUnavailable FailureKind = "external_unavailable"

	// FailureInvalidInput is a malformed snapshot; it fails the whole run
	// before any task is scheduled.
	FailureInvalidInput FailureKind = "invalid_input"
)

// State is the terminal state of one analyzer execution attempt.
type State string

const (
	// StateSuccess means the analyzer returned a payload.
	StateSuccess State = "success"

	// StateFailure means the analyzer returned an error or panicked.
	StateFailure State = "failure"

	// StateTimedOut means the analyzer missed its deadline.
	StateTimedOut State = "timed_out"
)

// Outcome is the tagged result of one analyzer's single execution attempt.
// Exactly one outcome exists per task per run. Payload is set only when
// State is StateSuccess; Kind and Message only when State is StateFailure.
type Outcome struct {
	State   State         `json:"state"`
	Payload any           `json:"payload,omitempty"`
	Kind    FailureKind   `json:"kind,omitempty"`
	Message string        `json:"message,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Success returns a successful outcome carrying the analyzer payload.
func Success(payload any) Outcome {
	return Outcome{State: StateSuccess, Payload: payload}
}

// Failure returns a failed outcome with the given kind and message.
func Failure(kind FailureKind, message string) Outcome {
	return Outcome{State: StateFailure, Kind: kind, Message: message}
}

// TimedOut returns an outcome for a task that missed its deadline.
func TimedOut() Outcome {
	return Outcome{State: StateTimedOut, Kind: FailureTimeout, Message: "deadline exceeded"}
}

// OK reports whether the outcome carries a payload.
func (o Outcome) OK() bool {
	return o.State == StateSuccess
}

// Analyzer is one independent analysis over a repository snapshot.
// Implementations must be safe for concurrent use, must treat the snapshot
// as read-only, and must not retain it beyond the call. Blocking work must
// honor ctx cancellation.
type Analyzer interface {
	// Name is the stable identifier used as the report key.
	Name() string

	// Analyze runs the analysis and returns a serializable payload.
	Analyze(ctx context.Context, snap *snapshot.Snapshot) (any, error)
}

// Task binds an analyzer to its per-run deadline. Tasks are constructed once
// at orchestrator start, hold no state, and are reused across runs.
type Task struct {
	Name     string
	Deadline time.Duration
	Analyzer Analyzer
}

// NewTask creates a task named after the analyzer.
func NewTask(a Analyzer, deadline time.Duration) Task {
	return Task{Name: a.Name(), Deadline: deadline, Analyzer: a}
}
