package api

import (
	"time"
)

// StepResult is the immutable record of one executed (or skipped) step.
type StepResult struct {
	Name     string `json:"name"`
	Outcome  Status `json:"outcome"`
	ExitCode int    `json:"exitCode"`
	// Output holds the captured stdout/stderr lines, interleaved in the order
	// produced. Interleaving across the two streams is best-effort.
	Output []string `json:"output,omitempty"`
	// LaunchError is set when the step executable could not be started at all
	// (missing interpreter, permission denied). The outcome is then FAILED.
	LaunchError string     `json:"launchError,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
}

// JobResult is the immutable record of one finished job instance.
type JobResult struct {
	Instance   string       `json:"instance"`
	Job        string       `json:"job"`
	Assignment Assignment   `json:"-"`
	Outcome    Status       `json:"outcome"`
	Steps      []StepResult `json:"steps,omitempty"`
	// CancelledBy identifies the failed prerequisite instance that cascaded
	// into this cancellation. Empty unless Outcome is CANCELLED.
	CancelledBy string     `json:"cancelledBy,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
}

// PipelineResult aggregates every job instance result into the final verdict.
type PipelineResult struct {
	Name    string  `json:"name"`
	Verdict Verdict `json:"verdict"`
	// Instances lists instance identities in materialization order, so that
	// reports render deterministically whatever the completion order was.
	Instances []string             `json:"instances"`
	Jobs      map[string]JobResult `json:"jobs"`
}
