package api

import (
	"sort"
	"strings"
)

// Validate validates the pipeline specification.
// Rules are:
// - Job names are unique
// - Every step has a run command
// - Matrix axes have at least one value
// - needs entries refer to existing jobs
// - A job cannot depend on itself
// - needs declarations do not form a cycle
// Any violation is reported as a SpecError; nothing executes after that.
func (p PipelineSpec) Validate() error {
	seen := make(map[string]bool, len(p.Jobs))
	for _, job := range p.Jobs {
		if seen[job.Name] {
			return NewSpecError(ParseError, "duplicate job name %q", job.Name)
		}
		seen[job.Name] = true

		for i, step := range job.Steps {
			if strings.TrimSpace(step.Run) == "" {
				return NewSpecError(ParseError, "job %q step %d has no run command", job.Name, i+1)
			}
		}
		if job.Matrix != nil {
			for _, axis := range job.Matrix.Axes {
				if len(axis.Values) == 0 {
					return NewSpecError(InvalidMatrix, "job %q matrix axis %q has no value", job.Name, axis.Name)
				}
			}
		}
	}

	for _, job := range p.Jobs {
		for _, dep := range job.Needs {
			if dep == job.Name {
				return NewSpecError(CyclicDependency, "job %q depends on itself", job.Name)
			}
			if !seen[dep] {
				return NewSpecError(UnknownDependency, "job %q needs unknown job %q", job.Name, dep)
			}
		}
	}

	return p.checkCycles()
}

// checkCycles runs Kahn's algorithm over the needs graph. Whatever cannot be
// topologically ordered is part of a cycle.
func (p PipelineSpec) checkCycles() error {
	indegree := make(map[string]int, len(p.Jobs))
	dependents := make(map[string][]string, len(p.Jobs))
	for _, job := range p.Jobs {
		indegree[job.Name] = len(job.Needs)
		for _, dep := range job.Needs {
			dependents[dep] = append(dependents[dep], job.Name)
		}
	}

	var ready []string
	for _, job := range p.Jobs {
		if indegree[job.Name] == 0 {
			ready = append(ready, job.Name)
		}
	}

	ordered := 0
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered++
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if ordered != len(p.Jobs) {
		var cyclic []string
		for name, d := range indegree {
			if d > 0 {
				cyclic = append(cyclic, name)
			}
		}
		sort.Strings(cyclic)
		return NewSpecError(CyclicDependency, "dependency cycle involving jobs %s", strings.Join(cyclic, ", "))
	}
	return nil
}
