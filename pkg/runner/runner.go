// Package runner executes the steps of one job instance in order.
package runner

import (
	"fmt"
	"strings"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/events"
	"regatta/pkg/executor"
	"regatta/pkg/util/context"
)

// Options carries the per-instance execution environment.
type Options struct {
	// WorkDir is the scratch directory of the instance.
	WorkDir string
	// DefaultTimeout bounds steps that declare no timeout of their own.
	DefaultTimeout time.Duration
	// OnStepDone, when set, is called after each step with the number of
	// finished steps. Used for live progress reporting.
	OnStepDone func(done int)
}

// Runner runs job instances. The executor backend is selected per instance
// from the registry, based on its matrix assignment.
type Runner struct {
	registry *executor.Registry
	notifier *events.Notifier
}

// New returns a runner over the given backends.
func New(registry *executor.Registry, notifier *events.Notifier) *Runner {
	return &Runner{registry: registry, notifier: notifier}
}

// Run executes the steps of the instance sequentially and returns its result.
// After the first step that does not succeed, the remaining steps are recorded
// as SKIPPED and the job fails. A job interrupted by run cancellation is
// CANCELLED instead.
func (r *Runner) Run(ctx context.Context, inst api.JobInstance, opts Options) api.JobResult {
	ctx = context.WithJobName(context.WithInstanceID(ctx, inst.ID()), inst.Spec.Name)
	start := time.Now()
	res := api.JobResult{
		Instance:   inst.ID(),
		Job:        inst.Spec.Name,
		Assignment: inst.Assignment,
		StartTime:  &start,
	}
	r.notify(ctx, events.Event{Type: events.TypeJobStarted, Job: inst.Spec.Name, Instance: inst.ID(), Status: api.StatusRunning})

	exec := r.registry.For(inst)
	stepOpts := executor.StepOptions{
		WorkDir:        opts.WorkDir,
		Env:            instanceEnv(inst),
		DefaultTimeout: opts.DefaultTimeout,
	}

	failed := false
	for _, step := range inst.Spec.Steps {
		if failed || ctx.Err() != nil {
			res.Steps = append(res.Steps, api.StepResult{Name: step.DisplayName(), Outcome: api.StatusSkipped})
			continue
		}
		ctx.Logger().Infof("running step %s", step.DisplayName())
		sr := exec.RunStep(ctx, step, stepOpts)
		sr.Name = step.DisplayName()
		res.Steps = append(res.Steps, sr)
		r.notify(ctx, events.Event{Type: events.TypeStepFinished, Job: inst.Spec.Name, Instance: inst.ID(), Step: sr.Name, Status: sr.Outcome})
		if opts.OnStepDone != nil {
			opts.OnStepDone(len(res.Steps))
		}
		if sr.Outcome != api.StatusSucceeded {
			ctx.Logger().Warnf("step %s finished with status %s", sr.Name, sr.Outcome)
			failed = true
		}
	}

	end := time.Now()
	res.EndTime = &end
	switch {
	case ctx.Err() != nil:
		res.Outcome = api.StatusCancelled
	case failed:
		res.Outcome = api.StatusFailed
	default:
		res.Outcome = api.StatusSucceeded
	}
	r.notify(ctx, events.Event{Type: events.TypeJobFinished, Job: inst.Spec.Name, Instance: inst.ID(), Status: res.Outcome})
	return res
}

func (r *Runner) notify(ctx context.Context, evt events.Event) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(ctx, evt)
}

// instanceEnv returns the variables exposed to every step of the instance:
// one MATRIX_<AXIS> entry per axis plus the job and instance identities.
func instanceEnv(inst api.JobInstance) []string {
	env := make([]string, 0, len(inst.Assignment)+2)
	for _, av := range inst.Assignment {
		env = append(env, fmt.Sprintf("MATRIX_%s=%s", envKey(av.Axis), av.Value))
	}
	env = append(env,
		fmt.Sprintf("REGATTA_JOB=%s", inst.Spec.Name),
		fmt.Sprintf("REGATTA_INSTANCE=%s", inst.ID()),
	)
	return env
}

func envKey(axis string) string {
	return strings.ToUpper(strings.ReplaceAll(axis, "-", "_"))
}
