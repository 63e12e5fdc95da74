package scheduler

import (
	"regatta/pkg/api"
)

// node is one job instance in the execution graph. An instance depends on
// every instance of every job its spec needs, so a job gated on a matrix job
// starts only once all of its variants succeeded.
type node struct {
	inst       api.JobInstance
	deps       []*node
	dependents []*node

	// pending counts unfinished dependencies. The node becomes ready at zero.
	pending  int
	started  bool
	finished bool
}

// buildGraph materializes the dependency graph over the instance set. The
// spec is validated beforehand, unresolved needs can only come from a caller
// skipping validation.
func buildGraph(instances []api.JobInstance) ([]*node, error) {
	nodes := make([]*node, len(instances))
	byJob := make(map[string][]*node)
	for i, inst := range instances {
		n := &node{inst: inst}
		nodes[i] = n
		byJob[inst.Spec.Name] = append(byJob[inst.Spec.Name], n)
	}

	for _, n := range nodes {
		for _, need := range n.inst.Spec.Needs {
			variants, exists := byJob[need]
			if !exists {
				return nil, api.NewSpecError(api.UnknownDependency, "job %s needs unknown job %s", n.inst.Spec.Name, need)
			}
			for _, dep := range variants {
				n.deps = append(n.deps, dep)
				dep.dependents = append(dep.dependents, n)
			}
		}
		n.pending = len(n.deps)
	}
	return nodes, nil
}
