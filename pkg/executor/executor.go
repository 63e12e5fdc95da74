// Package executor runs single pipeline steps. Backends are selected per job
// instance through a Registry keyed by a matrix axis value, decoupling the
// scheduling core from how a given platform is actually provisioned.
package executor

import (
	"time"

	"regatta/pkg/api"
	"regatta/pkg/util/context"
)

// DefaultStepTimeout bounds steps that declare no timeout when the runner
// configuration does not set one either.
const DefaultStepTimeout = 10 * time.Minute

// Executor runs a single step to completion or timeout. Failures are encoded
// in the returned StepResult, never silently dropped: a step whose executable
// cannot even start yields outcome FAILED with a launch error cause.
type Executor interface {
	RunStep(ctx context.Context, step api.StepSpec, opts StepOptions) api.StepResult
}

// StepOptions carries the execution environment of one step.
type StepOptions struct {
	// WorkDir is the per-instance scratch directory, used when the step
	// declares no workdir override.
	WorkDir string
	// Env is appended to the inherited environment as KEY=VALUE pairs.
	Env []string
	// DefaultTimeout bounds steps that declare no timeout of their own.
	DefaultTimeout time.Duration
}

func (o StepOptions) timeout(step api.StepSpec) time.Duration {
	if step.Timeout > 0 {
		return step.Timeout.Std()
	}
	if o.DefaultTimeout > 0 {
		return o.DefaultTimeout
	}
	return DefaultStepTimeout
}

// Func adapts a function to the Executor interface. Tests substitute a
// deterministic Func for the process-spawning backends.
type Func func(ctx context.Context, step api.StepSpec, opts StepOptions) api.StepResult

// RunStep implements Executor.
func (f Func) RunStep(ctx context.Context, step api.StepSpec, opts StepOptions) api.StepResult {
	return f(ctx, step, opts)
}
