package api

import (
	"fmt"
	"strings"
)

// AxisValue binds one matrix axis to a concrete value.
type AxisValue struct {
	Axis  string
	Value string
}

// Assignment is the matrix value binding of one job instance, ordered by axis
// declaration. An empty assignment designates the single instance of a job
// without matrix.
type Assignment []AxisValue

// Get returns the value bound to the given axis.
func (a Assignment) Get(axis string) (string, bool) {
	for _, av := range a {
		if av.Axis == axis {
			return av.Value, true
		}
	}
	return "", false
}

func (a Assignment) String() string {
	parts := make([]string, len(a))
	for i, av := range a {
		parts[i] = fmt.Sprintf("%s=%s", av.Axis, av.Value)
	}
	return strings.Join(parts, ",")
}

// JobInstance is a job bound to one concrete matrix assignment. The full
// instance set is materialized before scheduling begins and never mutated
// afterwards.
type JobInstance struct {
	Spec       JobSpec
	Assignment Assignment
}

// ID returns the instance identity, e.g. "build[os=ubuntu]". A job without
// matrix is identified by its bare name.
func (ji JobInstance) ID() string {
	if len(ji.Assignment) == 0 {
		return ji.Spec.Name
	}
	return fmt.Sprintf("%s[%s]", ji.Spec.Name, ji.Assignment)
}
