// Package matrix expands job templates into concrete job instances, one per
// combination of matrix axis values.
package matrix

import (
	"regatta/pkg/api"
)

// Expand returns the job instances of the given job as the cartesian product
// over its matrix axes, iterating the last-declared axis fastest. A job
// without matrix yields exactly one instance with an empty assignment.
// Expand is a pure function of the spec, it has no side effects.
func Expand(job api.JobSpec) ([]api.JobInstance, error) {
	if job.Matrix == nil || len(job.Matrix.Axes) == 0 {
		return []api.JobInstance{{Spec: job}}, nil
	}

	axes := job.Matrix.Axes
	total := 1
	for _, axis := range axes {
		if len(axis.Values) == 0 {
			return nil, api.NewSpecError(api.InvalidMatrix, "job %q matrix axis %q has no value", job.Name, axis.Name)
		}
		total *= len(axis.Values)
	}

	// Odometer over the axis value indices, last axis ticking fastest.
	indices := make([]int, len(axes))
	instances := make([]api.JobInstance, 0, total)
	for n := 0; n < total; n++ {
		assignment := make(api.Assignment, len(axes))
		for i, axis := range axes {
			assignment[i] = api.AxisValue{Axis: axis.Name, Value: axis.Values[indices[i]]}
		}
		instances = append(instances, api.JobInstance{Spec: job, Assignment: assignment})

		for i := len(indices) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(axes[i].Values) {
				break
			}
			indices[i] = 0
		}
	}
	return instances, nil
}

// ExpandPipeline materializes the full instance set of a pipeline, in job
// declaration order. No instance is ever created after scheduling begins.
func ExpandPipeline(spec api.PipelineSpec) ([]api.JobInstance, error) {
	var instances []api.JobInstance
	for _, job := range spec.Jobs {
		expanded, err := Expand(job)
		if err != nil {
			return nil, err
		}
		instances = append(instances, expanded...)
	}
	return instances, nil
}
