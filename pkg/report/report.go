// Package report aggregates job instance results into the final pipeline
// verdict and renders runs for the terminal.
package report

import (
	"regatta/pkg/api"
)

// Build assembles the pipeline result from the recorded instance results.
// Instances are listed in materialization order so the report is identical
// whatever order the instances actually finished in. The verdict is SUCCESS
// only when every instance succeeded.
func Build(name string, instances []string, results map[string]api.JobResult) api.PipelineResult {
	res := api.PipelineResult{
		Name:      name,
		Verdict:   api.VerdictSuccess,
		Instances: instances,
		Jobs:      make(map[string]api.JobResult, len(results)),
	}
	for _, id := range instances {
		jr, ok := results[id]
		if !ok || jr.Outcome != api.StatusSucceeded {
			res.Verdict = api.VerdictFailure
		}
		if ok {
			res.Jobs[id] = jr
		}
	}
	return res
}
