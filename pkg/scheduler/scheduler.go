// Package scheduler orders job instances by their dependencies and drives
// them to completion. An instance starts once every instance of every job it
// needs succeeded. When a prerequisite fails, everything downstream of it is
// cancelled without executing.
package scheduler

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/events"
	"regatta/pkg/matrix"
	"regatta/pkg/report"
	"regatta/pkg/runner"
	"regatta/pkg/store"
	"regatta/pkg/util/context"

	"github.com/pkg/errors"
)

// Options carries the run-wide execution settings.
type Options struct {
	// MaxParallel bounds the number of instances executing at once.
	// Zero means unbounded.
	MaxParallel int
	// DefaultStepTimeout bounds steps that declare no timeout of their own.
	DefaultStepTimeout time.Duration
	// WorkDir is the scratch root of the run. When empty a temporary
	// directory is created and removed when the run finishes.
	WorkDir string
}

// Scheduler runs pipelines.
type Scheduler struct {
	store    store.Store
	runner   *runner.Runner
	notifier *events.Notifier
}

// New returns a scheduler persisting run state in the given store.
func New(st store.Store, r *runner.Runner, notifier *events.Notifier) *Scheduler {
	return &Scheduler{store: st, runner: r, notifier: notifier}
}

// Run validates the spec, materializes its instance set and executes it to
// completion. The returned result covers every instance, whatever its fate.
// A SpecError is returned before anything executes when the spec is invalid.
func (s *Scheduler) Run(ctx context.Context, runID string, spec api.PipelineSpec, opts Options) (api.PipelineResult, error) {
	if err := spec.Validate(); err != nil {
		return api.PipelineResult{}, err
	}
	instances, err := matrix.ExpandPipeline(spec)
	if err != nil {
		return api.PipelineResult{}, err
	}
	nodes, err := buildGraph(instances)
	if err != nil {
		return api.PipelineResult{}, err
	}

	ctx = context.WithRunID(ctx, runID)
	if err := s.store.CreateRun(ctx, runID, spec, instances); err != nil {
		return api.PipelineResult{}, errors.Wrapf(err, "cannot create run %s", runID)
	}

	workdir := opts.WorkDir
	if workdir == "" {
		workdir, err = ioutil.TempDir("", "regatta-")
		if err != nil {
			return api.PipelineResult{}, errors.Wrap(err, "cannot create scratch directory")
		}
		defer os.RemoveAll(workdir)
	}

	ctx.Logger().Infof("starting pipeline %s with %d instances", spec.Name, len(instances))
	s.setPipelineStatus(ctx, runID, api.StatusRunning, store.TimeOption{StartTime: time.Now()})
	s.notify(ctx, events.Event{Type: events.TypePipelineStarted, Pipeline: spec.Name, Status: api.StatusRunning})

	e := &execution{
		sched:   s,
		ctx:     ctx,
		runID:   runID,
		opts:    opts,
		workdir: workdir,
		nodes:   nodes,
	}
	if opts.MaxParallel > 0 {
		e.sem = make(chan struct{}, opts.MaxParallel)
	}
	e.wg.Add(len(nodes))

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			e.abort()
		case <-stop:
		}
	}()

	e.mu.Lock()
	for _, n := range nodes {
		if n.pending == 0 {
			e.start(n)
		}
	}
	e.mu.Unlock()
	e.wg.Wait()
	close(stop)

	results, err := s.store.JobResults(ctx, runID)
	if err != nil {
		return api.PipelineResult{}, errors.Wrapf(err, "cannot collect results of run %s", runID)
	}
	order := make([]string, len(instances))
	for i, inst := range instances {
		order[i] = inst.ID()
	}
	res := report.Build(spec.Name, order, results)

	status := api.StatusSucceeded
	if res.Verdict != api.VerdictSuccess {
		status = api.StatusFailed
	}
	s.setPipelineStatus(ctx, runID, status, store.TimeOption{EndTime: time.Now()})
	s.notify(ctx, events.Event{Type: events.TypePipelineFinished, Pipeline: spec.Name, Status: status})
	ctx.Logger().Infof("pipeline %s finished: %s", spec.Name, res.Verdict)
	return res, nil
}

func (s *Scheduler) setPipelineStatus(ctx context.Context, runID string, status api.Status, opt store.TimeOption) {
	if err := s.store.SetPipelineStatus(ctx, runID, status, opt); err != nil {
		ctx.Logger().Errorf("cannot set status of run %s: %s", runID, err)
	}
}

func (s *Scheduler) notify(ctx context.Context, evt events.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, evt)
}

// execution is the in-flight state of one Run call.
type execution struct {
	sched   *Scheduler
	ctx     context.Context
	runID   string
	opts    Options
	workdir string

	mu    sync.Mutex
	wg    sync.WaitGroup
	sem   chan struct{}
	nodes []*node
}

// start must be called with the mutex held.
func (e *execution) start(n *node) {
	if n.started || n.finished {
		return
	}
	n.started = true
	go e.runNode(n)
}

func (e *execution) runNode(n *node) {
	if e.sem != nil {
		select {
		case e.sem <- struct{}{}:
			defer func() { <-e.sem }()
		case <-e.ctx.Done():
			e.mu.Lock()
			e.cancel(n, "")
			e.mu.Unlock()
			return
		}
	}
	if e.ctx.Err() != nil {
		e.mu.Lock()
		e.cancel(n, "")
		e.mu.Unlock()
		return
	}

	id := n.inst.ID()
	e.setInstanceStatus(id, api.StatusRunning, store.TimeOption{StartTime: time.Now()})

	dir := filepath.Join(e.workdir, scratchName(id))
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.ctx.Logger().Errorf("cannot create scratch directory for %s: %s", id, err)
		dir = e.workdir
	}

	res := e.sched.runner.Run(e.ctx, n.inst, runner.Options{
		WorkDir:        dir,
		DefaultTimeout: e.opts.DefaultStepTimeout,
		OnStepDone: func(done int) {
			if err := e.sched.store.SetInstanceProgress(e.ctx, e.runID, id, done); err != nil {
				e.ctx.Logger().Errorf("cannot record progress of %s: %s", id, err)
			}
		},
	})
	e.complete(n, res)
}

func (e *execution) complete(n *node, res api.JobResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n.finished {
		return
	}
	n.finished = true

	id := n.inst.ID()
	e.setInstanceStatus(id, res.Outcome, store.TimeOption{EndTime: time.Now()})
	e.putResult(res)
	e.wg.Done()

	if res.Outcome == api.StatusSucceeded {
		for _, d := range n.dependents {
			d.pending--
			if d.pending == 0 {
				e.start(d)
			}
		}
		return
	}
	for _, d := range n.dependents {
		e.cancel(d, id)
	}
}

// cancel marks the node and everything downstream of it cancelled, depth
// first. by identifies the instance whose failure triggered the cascade,
// empty when the run itself was aborted. Must be called with the mutex held.
func (e *execution) cancel(n *node, by string) {
	if n.finished {
		return
	}
	n.finished = true

	id := n.inst.ID()
	now := time.Now()
	e.setInstanceStatus(id, api.StatusCancelled, store.TimeOption{EndTime: now})
	e.putResult(api.JobResult{
		Instance:    id,
		Job:         n.inst.Spec.Name,
		Assignment:  n.inst.Assignment,
		Outcome:     api.StatusCancelled,
		CancelledBy: by,
		EndTime:     &now,
	})
	e.wg.Done()

	for _, d := range n.dependents {
		e.cancel(d, by)
	}
}

// abort cancels every instance that has not started executing yet. Instances
// already running see the context cancellation through their executor.
func (e *execution) abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ctx.Logger().Warn("run aborted, cancelling pending instances")
	for _, n := range e.nodes {
		if !n.started {
			e.cancel(n, "")
		}
	}
}

func (e *execution) setInstanceStatus(id string, status api.Status, opt store.TimeOption) {
	if err := e.sched.store.SetInstanceStatus(e.ctx, e.runID, id, status, opt); err != nil {
		e.ctx.Logger().Errorf("cannot set status of %s: %s", id, err)
	}
}

func (e *execution) putResult(res api.JobResult) {
	if err := e.sched.store.PutJobResult(e.ctx, e.runID, res); err != nil {
		e.ctx.Logger().Errorf("cannot record result of %s: %s", res.Instance, err)
	}
}

// scratchName flattens an instance identity into a directory name.
func scratchName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '[', ']', '=', ',', ' ':
			return '-'
		}
		return r
	}, id)
}
