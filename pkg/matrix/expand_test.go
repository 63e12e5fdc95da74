package matrix

import (
	"testing"

	"regatta/pkg/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandNoMatrix(t *testing.T) {
	instances, err := Expand(api.JobSpec{Name: "fmt"})
	require.NoError(t, err)
	require.Equal(t, 1, len(instances))
	assert.Equal(t, "fmt", instances[0].ID())
	assert.Empty(t, instances[0].Assignment)
}

func TestExpandSingleAxis(t *testing.T) {
	job := api.JobSpec{
		Name:   "build",
		Matrix: &api.MatrixSpec{Axes: []api.Axis{{Name: "os", Values: []string{"ubuntu", "macOS", "windows"}}}},
	}
	instances, err := Expand(job)
	require.NoError(t, err)
	require.Equal(t, 3, len(instances))
	assert.Equal(t, "build[os=ubuntu]", instances[0].ID())
	assert.Equal(t, "build[os=macOS]", instances[1].ID())
	assert.Equal(t, "build[os=windows]", instances[2].ID())
}

func TestExpandProductOrdering(t *testing.T) {
	job := api.JobSpec{
		Name: "build",
		Matrix: &api.MatrixSpec{Axes: []api.Axis{
			{Name: "os", Values: []string{"linux", "darwin"}},
			{Name: "arch", Values: []string{"amd64", "arm64", "riscv64"}},
		}},
	}
	instances, err := Expand(job)
	require.NoError(t, err)
	require.Equal(t, 6, len(instances))

	// Last-declared axis iterates fastest.
	ids := make([]string, len(instances))
	for i, inst := range instances {
		ids[i] = inst.ID()
	}
	assert.Equal(t, []string{
		"build[os=linux,arch=amd64]",
		"build[os=linux,arch=arm64]",
		"build[os=linux,arch=riscv64]",
		"build[os=darwin,arch=amd64]",
		"build[os=darwin,arch=arm64]",
		"build[os=darwin,arch=riscv64]",
	}, ids)

	// Assignments are pairwise distinct.
	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestExpandEmptyAxis(t *testing.T) {
	job := api.JobSpec{
		Name:   "build",
		Matrix: &api.MatrixSpec{Axes: []api.Axis{{Name: "os"}}},
	}
	_, err := Expand(job)
	require.Error(t, err)
	se, ok := api.AsSpecError(err)
	require.True(t, ok)
	assert.Equal(t, api.InvalidMatrix, se.Kind)
}

func TestExpandPipeline(t *testing.T) {
	spec := api.PipelineSpec{Jobs: []api.JobSpec{
		{Name: "fmt"},
		{Name: "build", Matrix: &api.MatrixSpec{Axes: []api.Axis{{Name: "os", Values: []string{"ubuntu", "macOS", "windows"}}}}},
		{Name: "test", Matrix: &api.MatrixSpec{Axes: []api.Axis{{Name: "os", Values: []string{"ubuntu", "macOS", "windows"}}}}},
	}}
	instances, err := ExpandPipeline(spec)
	require.NoError(t, err)
	assert.Equal(t, 7, len(instances))
	assert.Equal(t, "fmt", instances[0].ID())
}
