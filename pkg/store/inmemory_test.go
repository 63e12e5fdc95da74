package store

import (
	"testing"
	"time"

	"regatta/pkg/api"
	"regatta/pkg/util/context"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInstances() []api.JobInstance {
	build := api.JobSpec{Name: "build", Steps: []api.StepSpec{{Run: "make"}, {Run: "make install"}}}
	return []api.JobInstance{
		{Spec: build, Assignment: api.Assignment{{Axis: "os", Value: "ubuntu"}}},
		{Spec: build, Assignment: api.Assignment{{Axis: "os", Value: "alpine"}}},
	}
}

func TestInMemoryRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.CreateRun(ctx, "run-1", api.PipelineSpec{Name: "ci"}, testInstances()))

	state, err := s.State(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "ci", state.Name)
	assert.Equal(t, api.StatusPending, state.Status)
	require.Equal(t, 2, len(state.Instances))
	assert.Equal(t, "build[os=ubuntu]", state.Instances[0].ID)
	assert.Equal(t, "build[os=alpine]", state.Instances[1].ID)
	assert.Equal(t, 2, state.Instances[0].StepsTotal)

	now := time.Now()
	require.NoError(t, s.SetPipelineStatus(ctx, "run-1", api.StatusRunning, TimeOption{StartTime: now}))
	require.NoError(t, s.SetInstanceStatus(ctx, "run-1", "build[os=ubuntu]", api.StatusRunning, TimeOption{StartTime: now}))
	require.NoError(t, s.SetInstanceProgress(ctx, "run-1", "build[os=ubuntu]", 1))

	state, err = s.State(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, api.StatusRunning, state.Status)
	assert.Equal(t, api.StatusRunning, state.Instances[0].Status)
	assert.Equal(t, 1, state.Instances[0].StepsDone)
	require.NotNil(t, state.Instances[0].StartTime)
	assert.Nil(t, state.Instances[0].EndTime)
}

func TestInMemoryJobResults(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.CreateRun(ctx, "run-1", api.PipelineSpec{Name: "ci"}, testInstances()))

	res := api.JobResult{Instance: "build[os=ubuntu]", Job: "build", Outcome: api.StatusSucceeded}
	require.NoError(t, s.PutJobResult(ctx, "run-1", res))

	all, err := s.JobResults(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, 1, len(all))
	assert.Equal(t, api.StatusSucceeded, all["build[os=ubuntu]"].Outcome)

	err = s.PutJobResult(ctx, "run-1", api.JobResult{Instance: "deploy"})
	assert.IsType(t, ErrNotFound{}, err)
}

func TestInMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	_, err := s.State(ctx, "nope")
	require.Error(t, err)
	assert.IsType(t, ErrNotFound{}, err)

	err = s.SetInstanceStatus(ctx, "nope", "build", api.StatusRunning, TimeOption{})
	assert.IsType(t, ErrNotFound{}, err)
}
