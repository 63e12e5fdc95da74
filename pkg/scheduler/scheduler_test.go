package scheduler

import (
	gocontext "context"
	"sync"
	"testing"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/executor"
	"regatta/pkg/runner"
	"regatta/pkg/store"
	"regatta/pkg/util/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// traceExecutor records the order in which instances run and fails the
// commands it is told to fail.
type traceExecutor struct {
	mu      sync.Mutex
	trace   []string
	failing map[string]bool

	running    int
	maxRunning int
}

func (t *traceExecutor) RunStep(ctx context.Context, step api.StepSpec, opts executor.StepOptions) api.StepResult {
	t.mu.Lock()
	t.trace = append(t.trace, ctx.InstanceID())
	t.running++
	if t.running > t.maxRunning {
		t.maxRunning = t.running
	}
	t.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	t.mu.Lock()
	t.running--
	failed := t.failing[ctx.InstanceID()]
	t.mu.Unlock()

	if failed {
		return api.StepResult{Outcome: api.StatusFailed, ExitCode: 1}
	}
	return api.StepResult{Outcome: api.StatusSucceeded}
}

func (t *traceExecutor) indexOf(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, v := range t.trace {
		if v == id {
			return i
		}
	}
	return -1
}

func newTestScheduler(exec executor.Executor) (*Scheduler, store.Store) {
	st := store.NewInMemoryStore()
	reg := executor.NewRegistry("os", exec)
	return New(st, runner.New(reg, nil), nil), st
}

// fmt, then build across three platforms, then test across the same three.
func ciSpec() api.PipelineSpec {
	osAxis := &api.MatrixSpec{Axes: []api.Axis{{Name: "os", Values: []string{"ubuntu", "alpine", "windows"}}}}
	return api.PipelineSpec{
		Name: "ci",
		Jobs: []api.JobSpec{
			{Name: "fmt", Steps: []api.StepSpec{{Run: "gofmt -l ."}}},
			{Name: "build", Needs: []string{"fmt"}, Matrix: osAxis, Steps: []api.StepSpec{{Run: "make build"}}},
			{Name: "test", Needs: []string{"build"}, Matrix: osAxis, Steps: []api.StepSpec{{Run: "make test"}}},
		},
	}
}

func TestRunOrdersInstancesByDependency(t *testing.T) {
	exec := &traceExecutor{}
	s, _ := newTestScheduler(exec)

	res, err := s.Run(context.Background(), "run-1", ciSpec(), Options{})
	require.NoError(t, err)

	assert.Equal(t, api.VerdictSuccess, res.Verdict)
	require.Equal(t, 7, len(res.Instances))
	assert.Equal(t, "fmt", res.Instances[0])
	for _, jr := range res.Jobs {
		assert.Equal(t, api.StatusSucceeded, jr.Outcome, jr.Instance)
	}

	// fmt runs first, every build runs before any test.
	builds := []string{"build[os=ubuntu]", "build[os=alpine]", "build[os=windows]"}
	tests := []string{"test[os=ubuntu]", "test[os=alpine]", "test[os=windows]"}
	for _, b := range builds {
		assert.True(t, exec.indexOf("fmt") < exec.indexOf(b), "fmt must run before %s", b)
		for _, tt := range tests {
			assert.True(t, exec.indexOf(b) < exec.indexOf(tt), "%s must run before %s", b, tt)
		}
	}
}

func TestRunFailureCancelsDependents(t *testing.T) {
	exec := &traceExecutor{failing: map[string]bool{"build[os=alpine]": true}}
	s, _ := newTestScheduler(exec)

	res, err := s.Run(context.Background(), "run-1", ciSpec(), Options{})
	require.NoError(t, err)

	assert.Equal(t, api.VerdictFailure, res.Verdict)
	assert.Equal(t, api.StatusSucceeded, res.Jobs["fmt"].Outcome)
	assert.Equal(t, api.StatusFailed, res.Jobs["build[os=alpine]"].Outcome)
	assert.Equal(t, api.StatusSucceeded, res.Jobs["build[os=ubuntu]"].Outcome)
	assert.Equal(t, api.StatusSucceeded, res.Jobs["build[os=windows]"].Outcome)

	// test needs build, so one failed build variant cancels every test variant.
	for _, id := range []string{"test[os=ubuntu]", "test[os=alpine]", "test[os=windows]"} {
		jr := res.Jobs[id]
		assert.Equal(t, api.StatusCancelled, jr.Outcome, id)
		assert.Equal(t, "build[os=alpine]", jr.CancelledBy, id)
		assert.Equal(t, -1, exec.indexOf(id), "%s must never execute", id)
	}
}

func TestRunCascadeIsTransitive(t *testing.T) {
	exec := &traceExecutor{failing: map[string]bool{"a": true}}
	s, _ := newTestScheduler(exec)

	spec := api.PipelineSpec{
		Name: "chain",
		Jobs: []api.JobSpec{
			{Name: "a", Steps: []api.StepSpec{{Run: "false"}}},
			{Name: "b", Needs: []string{"a"}, Steps: []api.StepSpec{{Run: "true"}}},
			{Name: "c", Needs: []string{"b"}, Steps: []api.StepSpec{{Run: "true"}}},
		},
	}
	res, err := s.Run(context.Background(), "run-1", spec, Options{})
	require.NoError(t, err)

	assert.Equal(t, api.StatusFailed, res.Jobs["a"].Outcome)
	assert.Equal(t, api.StatusCancelled, res.Jobs["b"].Outcome)
	assert.Equal(t, api.StatusCancelled, res.Jobs["c"].Outcome)
	assert.Equal(t, "a", res.Jobs["b"].CancelledBy)
	assert.Equal(t, "a", res.Jobs["c"].CancelledBy)
}

func TestRunRejectsInvalidSpec(t *testing.T) {
	exec := &traceExecutor{}
	s, _ := newTestScheduler(exec)

	t.Run("cycle", func(t *testing.T) {
		spec := api.PipelineSpec{
			Name: "bad",
			Jobs: []api.JobSpec{
				{Name: "a", Needs: []string{"b"}, Steps: []api.StepSpec{{Run: "true"}}},
				{Name: "b", Needs: []string{"a"}, Steps: []api.StepSpec{{Run: "true"}}},
			},
		}
		_, err := s.Run(context.Background(), "run-1", spec, Options{})
		se, ok := api.AsSpecError(err)
		require.True(t, ok)
		assert.Equal(t, api.CyclicDependency, se.Kind)
	})

	t.Run("unknown dependency", func(t *testing.T) {
		spec := api.PipelineSpec{
			Name: "bad",
			Jobs: []api.JobSpec{
				{Name: "a", Needs: []string{"ghost"}, Steps: []api.StepSpec{{Run: "true"}}},
			},
		}
		_, err := s.Run(context.Background(), "run-2", spec, Options{})
		se, ok := api.AsSpecError(err)
		require.True(t, ok)
		assert.Equal(t, api.UnknownDependency, se.Kind)
	})

	assert.Empty(t, exec.trace, "nothing may execute when the spec is invalid")
}

func TestRunMaxParallel(t *testing.T) {
	exec := &traceExecutor{}
	s, _ := newTestScheduler(exec)

	spec := api.PipelineSpec{
		Name: "wide",
		Jobs: []api.JobSpec{
			{
				Name:   "build",
				Matrix: &api.MatrixSpec{Axes: []api.Axis{{Name: "os", Values: []string{"a", "b", "c", "d", "e"}}}},
				Steps:  []api.StepSpec{{Run: "make"}},
			},
		},
	}
	res, err := s.Run(context.Background(), "run-1", spec, Options{MaxParallel: 2})
	require.NoError(t, err)

	assert.Equal(t, api.VerdictSuccess, res.Verdict)
	assert.True(t, exec.maxRunning <= 2, "observed %d concurrent instances", exec.maxRunning)
}

func TestRunAborted(t *testing.T) {
	goctx, cancel := gocontext.WithCancel(gocontext.Background())
	cancel()

	exec := &traceExecutor{}
	s, _ := newTestScheduler(exec)

	res, err := s.Run(context.FromContext(goctx), "run-1", ciSpec(), Options{})
	require.NoError(t, err)

	assert.Equal(t, api.VerdictFailure, res.Verdict)
	for _, jr := range res.Jobs {
		assert.Equal(t, api.StatusCancelled, jr.Outcome, jr.Instance)
	}
}

func TestRunRecordsState(t *testing.T) {
	exec := &traceExecutor{}
	s, st := newTestScheduler(exec)

	_, err := s.Run(context.Background(), "run-1", ciSpec(), Options{})
	require.NoError(t, err)

	state, err := st.State(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, api.StatusSucceeded, state.Status)
	require.Equal(t, 7, len(state.Instances))
	for _, inst := range state.Instances {
		assert.Equal(t, api.StatusSucceeded, inst.Status, inst.ID)
		assert.Equal(t, inst.StepsTotal, inst.StepsDone, inst.ID)
	}
	require.NotNil(t, state.StartTime)
	require.NotNil(t, state.EndTime)
}
